package bind

import (
	"sync"
	"sync/atomic"
	"testing"
)

// fakeHost is a minimal host ABI for cache tests. Handles are derived
// deterministically from the key so independent resolutions of the same
// key converge, exactly as the protocol assumes.
type fakeHost struct {
	mu       sync.Mutex
	resolved map[string]int // key → resolution count
	missing  map[string]bool

	invoked    atomic.Int64
	badInvokes atomic.Int64
	handles    sync.Map // Handle → true
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		resolved: make(map[string]int),
		missing:  make(map[string]bool),
	}
}

func (h *fakeHost) key(owner, member string) string { return owner + "." + member }

func (h *fakeHost) ResolveMethod(owner, member string, hash int64) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := h.key(owner, member)
	h.resolved[k]++
	if h.missing[k] {
		return 0
	}
	handle := Handle(uintptr(len(k)*1000 + int(hash)))
	h.handles.Store(handle, true)
	return handle
}

func (h *fakeHost) ResolveConstructorOrOperator(typeName string, index int) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := h.key(typeName, "ctor")
	h.resolved[k]++
	if h.missing[k] {
		return 0
	}
	handle := Handle(uintptr(len(typeName)*100 + index + 1))
	h.handles.Store(handle, true)
	return handle
}

func (h *fakeHost) Invoke(handle Handle, instance ObjectHandle, args []any, ret any) {
	h.invoked.Add(1)
	if _, ok := h.handles.Load(handle); !ok {
		h.badInvokes.Add(1)
		return
	}
	if p, ok := ret.(*int); ok {
		*p = 42
	}
}

func (h *fakeHost) ResolveSingleton(typeName string) ObjectHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resolved[h.key(typeName, "singleton")]++
	return 7
}

func (h *fakeHost) ObjectRef(obj ObjectHandle)   {}
func (h *fakeHost) ObjectUnref(obj ObjectHandle) {}

func withHost(t *testing.T) *fakeHost {
	t.Helper()
	reset()
	h := newFakeHost()
	Install(h)
	t.Cleanup(reset)
	return h
}

func TestMethodVarResolvesOnceOnHappyPath(t *testing.T) {
	h := withHost(t)
	v := Method("Node", "get_name", 11)

	if v.Resolved() {
		t.Fatal("entry resolved before first use")
	}
	first := v.Resolve()
	if first == 0 {
		t.Fatal("Resolve returned zero handle")
	}
	if again := v.Resolve(); again != first {
		t.Errorf("second Resolve = %v, want %v", again, first)
	}
	if got := h.resolved["Node.get_name"]; got != 1 {
		t.Errorf("host resolution count = %d, want 1", got)
	}
	if !v.Resolved() {
		t.Error("entry not marked resolved")
	}
}

func TestMethodVarCall(t *testing.T) {
	h := withHost(t)
	v := Method("Node", "get_count", 12)

	var ret int
	v.Call(3, []any{"child"}, &ret)
	if ret != 42 {
		t.Errorf("ret = %d, want 42", ret)
	}
	if h.badInvokes.Load() != 0 {
		t.Error("invoke saw an unknown handle")
	}
}

// Two (here: many) concurrent first-calls each resolve independently and
// every one must obtain a handle the host accepts. No torn handle may be
// observable at any point.
func TestConcurrentFirstCallers(t *testing.T) {
	h := withHost(t)
	v := Method("Node", "busy", 13)

	const callers = 64
	var wg sync.WaitGroup
	rets := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v.Call(1, nil, &rets[i])
		}(i)
	}
	wg.Wait()

	for i, r := range rets {
		if r != 42 {
			t.Fatalf("caller %d got %d, want 42", i, r)
		}
	}
	if h.badInvokes.Load() != 0 {
		t.Fatalf("%d invokes used a torn or unknown handle", h.badInvokes.Load())
	}
	// The lookup may legitimately have run more than once; it must have
	// run at least once and the entry must have converged.
	if h.resolved["Node.busy"] < 1 {
		t.Error("no resolution happened")
	}
	if !v.Resolved() {
		t.Error("entry did not converge to resolved")
	}
}

func TestFailedEntry(t *testing.T) {
	h := withHost(t)
	h.missing["Ghost.vanish"] = true
	v := Method("Ghost", "vanish", 14)

	if got := v.Resolve(); got != 0 {
		t.Fatalf("Resolve = %v, want 0", got)
	}
	if !v.Failed() {
		t.Error("entry not marked failed")
	}
	if _, err := v.Handle(); err != ErrBindUnavailable {
		t.Errorf("Handle error = %v, want ErrBindUnavailable", err)
	}

	// Calls through a failed entry are no-ops and never reach Invoke.
	var ret int
	v.Call(1, nil, &ret)
	if ret != 0 {
		t.Errorf("ret = %d, want zero value", ret)
	}
	if h.invoked.Load() != 0 {
		t.Error("failed entry still invoked the host")
	}
}

func TestCtorVar(t *testing.T) {
	h := withHost(t)
	v := Ctor("Vector3", 0)

	first := v.Resolve()
	if first == 0 {
		t.Fatal("Resolve returned zero handle")
	}
	if again := v.Resolve(); again != first {
		t.Errorf("second Resolve = %v, want %v", again, first)
	}
	if got := h.resolved["Vector3.ctor"]; got != 1 {
		t.Errorf("resolution count = %d, want 1", got)
	}
}

func TestSingletonCachesAndTearsDown(t *testing.T) {
	h := withHost(t)
	s := Singleton("TimeServer")

	if got := s.Get(); got != 7 {
		t.Fatalf("Get = %v, want 7", got)
	}
	if got := s.Get(); got != 7 {
		t.Fatalf("second Get = %v, want 7", got)
	}
	if got := h.resolved["TimeServer.singleton"]; got != 1 {
		t.Errorf("resolution count = %d, want 1", got)
	}

	RunTeardown()
	if got := s.Get(); got != 7 {
		t.Fatalf("Get after teardown = %v", got)
	}
	if got := h.resolved["TimeServer.singleton"]; got != 2 {
		t.Errorf("resolution count after teardown = %d, want 2", got)
	}
}

func TestInstallTwicePanics(t *testing.T) {
	reset()
	t.Cleanup(reset)
	Install(newFakeHost())

	defer func() {
		if recover() == nil {
			t.Error("second Install did not panic")
		}
	}()
	Install(newFakeHost())
}

func TestVirtualDispatchShadowing(t *testing.T) {
	reset()
	t.Cleanup(reset)

	// Ancestor-to-descendant registration order, as the generator emits.
	RegisterClass("Object", "")
	RegisterClass("Base", "Object")
	RegisterClass("Derived", "Base")
	RegisterClass("Leaf", "Derived")
	RegisterVirtual("Base", "poll", 11)
	RegisterVirtual("Derived", "poll", 13)

	tests := []struct {
		class string
		want  int64
		ok    bool
	}{
		{"Base", 11, true},
		{"Derived", 13, true},
		{"Leaf", 13, true}, // inherits Derived's entry
		{"Object", 0, false},
		{"Unknown", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			got, ok := LookupVirtual(tt.class, "poll")
			if ok != tt.ok || got != tt.want {
				t.Errorf("LookupVirtual(%s, poll) = %d, %v; want %d, %v",
					tt.class, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTeardownRunsInReverseOrder(t *testing.T) {
	reset()
	t.Cleanup(reset)

	var order []int
	OnTeardown(func() { order = append(order, 1) })
	OnTeardown(func() { order = append(order, 2) })
	RunTeardown()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("teardown order = %v, want [2 1]", order)
	}

	// Hooks run once; a second RunTeardown is a no-op.
	RunTeardown()
	if len(order) != 2 {
		t.Errorf("teardown hooks ran again: %v", order)
	}
}
