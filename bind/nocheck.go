//go:build !bindcheck

package bind

// Unchecked build mode: the null-handle report is compiled out. A
// host/schema skew that fails to resolve a handle produces silent
// zero-value calls in this mode. Build with -tags bindcheck to get
// one-shot failure reports.

func reportMissingMethod(*MethodVar) {}

func reportMissingCtor(*CtorVar) {}
