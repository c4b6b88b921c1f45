//go:build bindcheck

package bind

import "github.com/tliron/commonlog"

// Checked build mode: a null handle from the host is reported exactly once
// per cache entry, and the failing call yields its zero result. Build
// without the bindcheck tag to compile the check out entirely.

var log = commonlog.GetLogger("hostbind.bind")

func reportMissingMethod(v *MethodVar) {
	if v.reported.CompareAndSwap(false, true) {
		log.Errorf("unresolved method %s.%s (hash %d): calls will return zero values",
			v.Owner, v.Member, v.Hash)
	}
}

func reportMissingCtor(v *CtorVar) {
	if v.reported.CompareAndSwap(false, true) {
		log.Errorf("unresolved constructor/operator %s[%d]: calls will return zero values",
			v.Type, v.Index)
	}
}
