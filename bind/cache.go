package bind

import (
	"errors"
	"sync/atomic"
)

// ErrBindUnavailable is returned by Handle() when the host could not
// resolve the entry's key. Wrapper calls through a failed entry are no-ops
// that yield the zero result.
var ErrBindUnavailable = errors.New("bind: host returned no handle for key")

// Entry states. An entry moves Unresolved → Resolved or Unresolved →
// Failed on first use and never changes again. The handle word is written
// before the state word, so a reader that observes Resolved always
// observes a complete handle; there is no torn intermediate.
const (
	stateUnresolved uint32 = iota
	stateResolved
	stateFailed
)

// MethodVar is one call-handle cache entry, keyed by (owner type name,
// member name, version hash). Generated code declares one package-level
// MethodVar per wrapper method; the first caller resolves it against the
// host ABI and every later call reuses the cached handle.
//
// Concurrent first-callers each perform the lookup independently. All
// writes for a given key are equal, so the race is benign and no mutual
// exclusion is taken anywhere on this path.
type MethodVar struct {
	Owner  string
	Member string
	Hash   int64

	state    atomic.Uint32
	handle   atomic.Uintptr
	reported atomic.Bool // checked builds: failure logged once per entry
}

// Method declares a cache entry for a named member.
func Method(owner, member string, hash int64) *MethodVar {
	return &MethodVar{Owner: owner, Member: member, Hash: hash}
}

// Resolve returns the entry's handle, performing the one-time host lookup
// on first use. A zero return means the entry is Failed.
func (v *MethodVar) Resolve() Handle {
	if v.state.Load() == stateResolved {
		return Handle(v.handle.Load())
	}
	return v.resolveSlow()
}

func (v *MethodVar) resolveSlow() Handle {
	if v.state.Load() == stateFailed {
		return 0
	}
	h := host().ResolveMethod(v.Owner, v.Member, v.Hash)
	if h == 0 {
		reportMissingMethod(v)
		v.state.Store(stateFailed)
		return 0
	}
	v.handle.Store(uintptr(h))
	v.state.Store(stateResolved)
	return h
}

// Handle is like Resolve but surfaces failure as an error, for callers
// that want an explicit result rather than the no-op contract.
func (v *MethodVar) Handle() (Handle, error) {
	h := v.Resolve()
	if h == 0 {
		return 0, ErrBindUnavailable
	}
	return h, nil
}

// Resolved reports whether the entry has successfully resolved.
func (v *MethodVar) Resolved() bool {
	return v.state.Load() == stateResolved
}

// Failed reports whether the entry's first lookup failed.
func (v *MethodVar) Failed() bool {
	return v.state.Load() == stateFailed
}

// Call resolves the entry and invokes through it. instance is zero for
// static members; ret is a pointer to the result slot or nil. Calls
// through a Failed entry return without invoking, leaving *ret zero.
func (v *MethodVar) Call(instance ObjectHandle, args []any, ret any) {
	h := v.Resolve()
	if h == 0 {
		return
	}
	host().Invoke(h, instance, args, ret)
}

// CtorVar is a cache entry for a constructor or value-type operator,
// keyed by (type name, index) rather than a member name. The resolution
// protocol is identical to MethodVar's.
type CtorVar struct {
	Type  string
	Index int

	state    atomic.Uint32
	handle   atomic.Uintptr
	reported atomic.Bool
}

// Ctor declares a cache entry for an indexed constructor or operator.
func Ctor(typeName string, index int) *CtorVar {
	return &CtorVar{Type: typeName, Index: index}
}

// Resolve returns the entry's handle, resolving on first use.
func (v *CtorVar) Resolve() Handle {
	if v.state.Load() == stateResolved {
		return Handle(v.handle.Load())
	}
	return v.resolveSlow()
}

func (v *CtorVar) resolveSlow() Handle {
	if v.state.Load() == stateFailed {
		return 0
	}
	h := host().ResolveConstructorOrOperator(v.Type, v.Index)
	if h == 0 {
		reportMissingCtor(v)
		v.state.Store(stateFailed)
		return 0
	}
	v.handle.Store(uintptr(h))
	v.state.Store(stateResolved)
	return h
}

// Handle is like Resolve but surfaces failure as ErrBindUnavailable.
func (v *CtorVar) Handle() (Handle, error) {
	h := v.Resolve()
	if h == 0 {
		return 0, ErrBindUnavailable
	}
	return h, nil
}

// Resolved reports whether the entry has successfully resolved.
func (v *CtorVar) Resolved() bool {
	return v.state.Load() == stateResolved
}

// Failed reports whether the entry's first lookup failed.
func (v *CtorVar) Failed() bool {
	return v.state.Load() == stateFailed
}

// Call resolves the entry and invokes through it.
func (v *CtorVar) Call(instance ObjectHandle, args []any, ret any) {
	h := v.Resolve()
	if h == 0 {
		return
	}
	host().Invoke(h, instance, args, ret)
}
