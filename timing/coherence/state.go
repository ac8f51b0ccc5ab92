// Package coherence implements a directory-based MSI cache coherence
// protocol. Every slot of every private cache is governed by a CacheLine
// automaton and every slot of the shared directory by a DirectoryLine
// automaton. Both are driven by explicit transition tables.
package coherence

// CacheState is the coherence state of a private cache slot.
type CacheState int

// Cache states. Suffix _D waits for data, _A for acknowledgments and _AD for
// both.
const (
	CacheStateI CacheState = iota
	CacheStateISD
	CacheStateIMAD
	CacheStateIMA
	CacheStateS
	CacheStateSMAD
	CacheStateSMA
	CacheStateM
	CacheStateMIA
	CacheStateSIA
	CacheStateIIA
	numCacheStates
)

var cacheStateNames = [numCacheStates]string{
	"I", "IS_D", "IM_AD", "IM_A", "S", "SM_AD", "SM_A", "M", "MI_A", "SI_A",
	"II_A",
}

func (s CacheState) String() string {
	if s < 0 || s >= numCacheStates {
		return "CacheState(?)"
	}
	return cacheStateNames[s]
}

// IsStable returns true for I, S and M.
func (s CacheState) IsStable() bool {
	return s == CacheStateI || s == CacheStateS || s == CacheStateM
}

// IsTransient returns true if the slot waits for a network event.
func (s CacheState) IsTransient() bool {
	return !s.IsStable()
}

// CacheStates returns every cache state in declaration order.
func CacheStates() []CacheState {
	states := make([]CacheState, numCacheStates)
	for i := range states {
		states[i] = CacheState(i)
	}
	return states
}

// DirectoryState is the coherence state of a directory slot.
type DirectoryState int

// Directory states.
const (
	DirectoryStateI DirectoryState = iota
	DirectoryStateISD
	DirectoryStateIMD
	DirectoryStateS
	DirectoryStateM
	DirectoryStateSD
	DirectoryStateMIA
	DirectoryStateSIA
	DirectoryStateIIA
	numDirectoryStates
)

var directoryStateNames = [numDirectoryStates]string{
	"I", "IS_D", "IM_D", "S", "M", "S_D", "MI_A", "SI_A", "II_A",
}

func (s DirectoryState) String() string {
	if s < 0 || s >= numDirectoryStates {
		return "DirectoryState(?)"
	}
	return directoryStateNames[s]
}

// IsStable returns true for I, S and M.
func (s DirectoryState) IsStable() bool {
	return s == DirectoryStateI || s == DirectoryStateS || s == DirectoryStateM
}

// IsTransient returns true if the slot waits for memory or acknowledgments.
func (s DirectoryState) IsTransient() bool {
	return !s.IsStable()
}

// DirectoryStates returns every directory state in declaration order.
func DirectoryStates() []DirectoryState {
	states := make([]DirectoryState, numDirectoryStates)
	for i := range states {
		states[i] = DirectoryState(i)
	}
	return states
}
