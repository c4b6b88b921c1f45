// Package bind implements the runtime protocol that generated wrapper code
// links against: lazy, idempotent resolution of opaque call handles against
// the host ABI, singleton access, virtual dispatch registration, and the
// explicit ownership operations for reference-counted host objects.
//
// Resolution of a call handle is a pure function of its key, so the cache
// deliberately allows concurrent first-callers to race: every racer
// resolves the same key to an equivalent handle and every write is equal.
// Idempotence, not locking, is what makes this safe.
package bind

import (
	"sync"
	"sync/atomic"
)

// Handle is an opaque call handle obtained from the host ABI. A zero
// Handle means the host could not resolve the key.
type Handle uintptr

// ObjectHandle is an opaque reference to a host-owned object instance.
type ObjectHandle uintptr

// HostABI is the surface the host runtime exposes to generated code. It is
// installed once during process initialization and treated as an immutable
// snapshot afterward; the cache only ever reads from it.
type HostABI interface {
	// ResolveMethod resolves a call handle for a named member. The hash
	// is the opaque version hash of the signature; the host returns a
	// zero Handle for unknown or incompatible keys.
	ResolveMethod(owner, member string, hash int64) Handle

	// ResolveConstructorOrOperator resolves a call handle for a
	// constructor or value-type operator, keyed by index rather than
	// name.
	ResolveConstructorOrOperator(typeName string, index int) Handle

	// Invoke calls through a resolved handle. instance is zero for
	// static methods and utility functions; ret is a pointer to the
	// result slot, or nil for void calls.
	Invoke(h Handle, instance ObjectHandle, args []any, ret any)

	// ResolveSingleton returns the host-owned singleton instance for a
	// type.
	ResolveSingleton(typeName string) ObjectHandle

	// ObjectRef and ObjectUnref are the explicit ownership-transfer
	// operations for reference-counted objects. Ownership moves only
	// through these calls, never through implicit copies.
	ObjectRef(obj ObjectHandle)
	ObjectUnref(obj ObjectHandle)
}

var hostABI atomic.Pointer[HostABI]

// Install sets the process-wide host ABI. It must be called exactly once,
// before any wrapper call, and the installed value is never replaced.
func Install(abi HostABI) {
	if abi == nil {
		panic("bind: Install(nil)")
	}
	if !hostABI.CompareAndSwap(nil, &abi) {
		panic("bind: host ABI installed twice")
	}
}

// Installed reports whether a host ABI is present.
func Installed() bool {
	return hostABI.Load() != nil
}

func host() HostABI {
	p := hostABI.Load()
	if p == nil {
		panic("bind: no host ABI installed")
	}
	return *p
}

// reset clears all process-wide state. Test support only.
func reset() {
	hostABI.Store(nil)
	teardownMu.Lock()
	teardownFns = nil
	teardownMu.Unlock()
	classParents = sync.Map{}
	virtuals = sync.Map{}
}

// ---------------------------------------------------------------------------
// Teardown registry
// ---------------------------------------------------------------------------

var (
	teardownMu  sync.Mutex
	teardownFns []func()
)

// OnTeardown registers fn to run at process teardown, before the host ABI
// goes away. Singleton accessors use this to release cached instances.
func OnTeardown(fn func()) {
	teardownMu.Lock()
	teardownFns = append(teardownFns, fn)
	teardownMu.Unlock()
}

// RunTeardown runs registered teardown hooks in reverse registration order.
// The embedder calls this once during shutdown.
func RunTeardown() {
	teardownMu.Lock()
	fns := teardownFns
	teardownFns = nil
	teardownMu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// ---------------------------------------------------------------------------
// Reference-counted ownership contract
// ---------------------------------------------------------------------------

// Ref takes an additional ownership share of a reference-counted object.
func Ref(obj ObjectHandle) {
	if obj != 0 {
		host().ObjectRef(obj)
	}
}

// Unref releases one ownership share of a reference-counted object.
func Unref(obj ObjectHandle) {
	if obj != 0 {
		host().ObjectUnref(obj)
	}
}
