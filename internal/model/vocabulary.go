package model

import (
	"encoding/hex"
	"slices"

	"github.com/zeebo/blake3"
)

// Digest returns the hex BLAKE3 digest of terms in sorted order, so two
// runs that found the same vocabulary in a different order compare equal.
// Each term is followed by a NUL byte to keep term boundaries unambiguous.
func Digest(terms []string) string {
	sorted := slices.Clone(terms)
	slices.Sort(sorted)

	h := blake3.New()
	for _, t := range sorted {
		_, _ = h.Write([]byte(t))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// VocabularyDiff lists the terms that differ between two runs.
type VocabularyDiff struct {
	OldRunID string   `json:"old_run_id"`
	NewRunID string   `json:"new_run_id"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`

	// Unchanged is the number of terms present in both runs.
	Unchanged int `json:"unchanged"`
}

// HasChanges reports whether any term was added or removed.
func (d *VocabularyDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// Diff compares the vocabularies of two runs. Added and Removed are sorted.
func Diff(oldRun, newRun *Run) *VocabularyDiff {
	d := &VocabularyDiff{
		OldRunID: oldRun.ID,
		NewRunID: newRun.ID,
		Added:    make([]string, 0),
		Removed:  make([]string, 0),
	}

	oldSet := make(map[string]struct{}, len(oldRun.Terms))
	for _, t := range oldRun.Terms {
		oldSet[t] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newRun.Terms))
	for _, t := range newRun.Terms {
		newSet[t] = struct{}{}
	}

	for t := range newSet {
		if _, ok := oldSet[t]; ok {
			d.Unchanged++
			continue
		}
		d.Added = append(d.Added, t)
	}
	for t := range oldSet {
		if _, ok := newSet[t]; !ok {
			d.Removed = append(d.Removed, t)
		}
	}

	slices.Sort(d.Added)
	slices.Sort(d.Removed)
	return d
}
