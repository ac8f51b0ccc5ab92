package coherence

import (
	"log"
	"sort"
)

// DirectoryEntry is the sharer and owner record of one directory slot.
// Sharers are kept sorted so that invalidations and recalls go out in a
// deterministic order.
type DirectoryEntry struct {
	sharers  []string
	owner    string
	hasOwner bool
}

// Sharers returns a copy of the sharer set.
func (d *DirectoryEntry) Sharers() []string {
	sharers := make([]string, len(d.sharers))
	copy(sharers, d.sharers)
	return sharers
}

// NumSharers returns the size of the sharer set.
func (d *DirectoryEntry) NumSharers() int {
	return len(d.sharers)
}

// HasSharer returns true if cache is in the sharer set.
func (d *DirectoryEntry) HasSharer(cache string) bool {
	i := sort.SearchStrings(d.sharers, cache)
	return i < len(d.sharers) && d.sharers[i] == cache
}

// Owner returns the owner and whether there is one.
func (d *DirectoryEntry) Owner() (string, bool) {
	return d.owner, d.hasOwner
}

// IsOwner returns true if cache owns the line.
func (d *DirectoryEntry) IsOwner(cache string) bool {
	return d.hasOwner && d.owner == cache
}

func (d *DirectoryEntry) addSharer(cache string) {
	i := sort.SearchStrings(d.sharers, cache)
	if i < len(d.sharers) && d.sharers[i] == cache {
		log.Panicf("%s is already a sharer", cache)
	}

	d.sharers = append(d.sharers, "")
	copy(d.sharers[i+1:], d.sharers[i:])
	d.sharers[i] = cache
}

func (d *DirectoryEntry) removeSharer(cache string) {
	i := sort.SearchStrings(d.sharers, cache)
	if i >= len(d.sharers) || d.sharers[i] != cache {
		log.Panicf("%s is not a sharer", cache)
	}

	d.sharers = append(d.sharers[:i], d.sharers[i+1:]...)
}

func (d *DirectoryEntry) clearSharers() {
	d.sharers = nil
}

func (d *DirectoryEntry) setOwner(cache string) {
	d.owner = cache
	d.hasOwner = true
}

func (d *DirectoryEntry) clearOwner() {
	d.owner = ""
	d.hasOwner = false
}
