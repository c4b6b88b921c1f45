package bind

import "sync/atomic"

// SingletonVar lazily resolves a host-owned singleton instance. The first
// accessor resolves it through the host ABI, registers it for teardown
// cleanup, and caches the handle for the rest of the process.
//
// Concurrent first accesses race on resolution like call handles do; the
// CompareAndSwap makes exactly one winner responsible for the teardown
// registration so the hook runs once.
type SingletonVar struct {
	Name string

	obj atomic.Uintptr
}

// Singleton declares a lazily-resolved singleton accessor.
func Singleton(name string) *SingletonVar {
	return &SingletonVar{Name: name}
}

// Get returns the singleton's object handle, resolving it on first use.
func (s *SingletonVar) Get() ObjectHandle {
	if obj := s.obj.Load(); obj != 0 {
		return ObjectHandle(obj)
	}
	obj := host().ResolveSingleton(s.Name)
	if obj == 0 {
		return 0
	}
	if s.obj.CompareAndSwap(0, uintptr(obj)) {
		OnTeardown(func() {
			s.obj.Store(0)
		})
	}
	return ObjectHandle(s.obj.Load())
}
