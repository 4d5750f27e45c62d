package fs

// pathID derives the storage identifier for a path: a djb2 hash over the
// path bytes with 32-bit wraparound, folded into the reserved identifier
// range [IDBase, IDBase+IDSpan). The mapping is a pure function of the
// path and the configured range, so it is stable across process restarts.
//
// Distinct paths can hash to the same identifier. The SIM file set is
// small and fixed in practice and the aliasing risk is accepted; nothing
// here detects or resolves a collision.
func (f *FS) pathID(path string) uint32 {
	var hash uint32 = 5381
	for i := 0; i < len(path); i++ {
		hash = hash*33 + uint32(path[i])
	}
	return f.cfg.IDBase + hash%f.cfg.IDSpan
}

// PathID reports the storage identifier a path maps to. Exposed for
// diagnostics; the store is never consulted.
func (f *FS) PathID(path string) uint32 {
	return f.pathID(path)
}
