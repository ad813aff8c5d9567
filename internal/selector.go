package internal

import (
	"strings"
	"sync"
)

// A SelectorHash identifies a message selector during lookup. Regular is the
// hash of the selector's canonical name. For single-keyword selectors like
// "foo:", Assign additionally carries the hash of the underlying "foo", so
// that lookup can fall back to finding the mutable data slot the selector
// would assign. Hashes are never zero; a zero Assign means the selector has
// no assignment form.
type SelectorHash struct {
	Regular uint32
	Assign  uint32
}

// HashName computes the 32-bit FNV-1a hash of a selector name. The result
// is never zero so that zero can mean "absent". Collisions are tolerated:
// slot search re-checks name equality on every hash hit.
func HashName(name string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= prime32
	}
	if h == 0 {
		return 1
	}
	return h
}

// SelectorFor builds the hash pair for a canonical selector name.
func SelectorFor(name string) SelectorHash {
	sh := SelectorHash{Regular: HashName(name)}
	if strings.Count(name, ":") == 1 && strings.HasSuffix(name, ":") {
		sh.Assign = HashName(name[:len(name)-1])
	}
	return sh
}

// ParentSelector is the canonical name of the built-in parent slot every
// byte array resolves through string traits.
const ParentSelector = "parent"

// ParentHash is the well-known hash of the built-in parent selector.
var ParentHash = HashName(ParentSelector)

// A SelectorTable interns selector names. It is populated single-threaded
// during VM boot and append-only under the lock afterwards, when actors may
// intern concurrently.
type SelectorTable struct {
	mu     sync.RWMutex
	byName map[string]SelectorHash
}

// NewSelectorTable creates an empty intern table.
func NewSelectorTable() *SelectorTable {
	return &SelectorTable{byName: make(map[string]SelectorHash, 256)}
}

// Intern returns the hash pair for name, computing and remembering it on
// first use.
func (st *SelectorTable) Intern(name string) SelectorHash {
	st.mu.RLock()
	sh, ok := st.byName[name]
	st.mu.RUnlock()
	if ok {
		return sh
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if sh, ok := st.byName[name]; ok {
		return sh
	}
	sh = SelectorFor(name)
	st.byName[name] = sh
	return sh
}
