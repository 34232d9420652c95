package schedule

// Pair is one classified diff element. Added pairs carry only New, removed
// pairs only Old, modified pairs both.
type Pair struct {
	Old *Entry
	New *Entry
}

// DiffResult partitions the changes between two snapshots. An entry whose
// fingerprint occurs in both snapshots is unchanged and appears nowhere.
type DiffResult struct {
	Added    []Pair
	Removed  []Pair
	Modified []Pair
}

// Total returns the number of classified changes across all three lists.
func (d DiffResult) Total() int {
	return len(d.Added) + len(d.Removed) + len(d.Modified)
}

// Empty reports whether the diff carries no changes at all.
func (d DiffResult) Empty() bool { return d.Total() == 0 }

// Diff computes the classified difference between the previous and current
// entry collections.
//
// Entries are first partitioned by fingerprint: present only in curr →
// tentatively added, only in prev → tentatively removed, in both → unchanged
// (excluded). A re-pairing pass then groups the tentative lists by soft key
// (slot + canonical title) and pairs them off FIFO into Modified, so a room
// or instructor change surfaces as one edit instead of an unrelated
// add+remove.
//
// The result is deterministic given the input order. When several entries on
// both sides share a soft key (e.g. subgroup splits of the same slot) the
// FIFO pairing is positional; the stable-input-order tie-break is part of the
// contract, but callers must not rely on a specific pairing in that case.
// Duplicate fingerprints within one collection are tolerated: the last entry
// wins.
func Diff(prev, curr []Entry) DiffResult {
	prevByID := entriesByFingerprint(prev)
	currByID := entriesByFingerprint(curr)

	removed := selectMissing(prev, prevByID, currByID)
	added := selectMissing(curr, currByID, prevByID)

	addedByKey := map[string][]int{}
	for i, e := range added {
		k := softKey(*e)
		addedByKey[k] = append(addedByKey[k], i)
	}

	var d DiffResult
	pairedOld := map[int]bool{}
	pairedNew := map[int]bool{}
	// Walk removals in input order so the pairing order is stable.
	for i, old := range removed {
		k := softKey(*old)
		queue := addedByKey[k]
		if len(queue) == 0 {
			continue
		}
		j := queue[0]
		addedByKey[k] = queue[1:]
		pairedOld[i] = true
		pairedNew[j] = true
		d.Modified = append(d.Modified, Pair{Old: old, New: added[j]})
	}

	for i, e := range added {
		if !pairedNew[i] {
			d.Added = append(d.Added, Pair{New: e})
		}
	}
	for i, e := range removed {
		if !pairedOld[i] {
			d.Removed = append(d.Removed, Pair{Old: e})
		}
	}
	return d
}

// entriesByFingerprint builds the identity map; on duplicate fingerprints the
// later entry replaces the earlier one (duplicates are unexpected but must
// not crash).
func entriesByFingerprint(entries []Entry) map[string]*Entry {
	m := make(map[string]*Entry, len(entries))
	for i := range entries {
		e := entries[i]
		m[Fingerprint(e)] = &e
	}
	return m
}

// selectMissing returns own's entries absent from other, one per fingerprint,
// preserving first-seen input order but carrying the map's winning entry.
func selectMissing(ordered []Entry, own, other map[string]*Entry) []*Entry {
	var out []*Entry
	seen := map[string]bool{}
	for i := range ordered {
		id := Fingerprint(ordered[i])
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := other[id]; !ok {
			out = append(out, own[id])
		}
	}
	return out
}
