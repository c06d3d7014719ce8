package bench

import (
	"sort"
	"sync"

	"github.com/BySabri/aura16/pkg/cpu"
)

// Entry is one program's outcome: its final performance snapshot, or an
// error if it failed to assemble or never halted within the step budget.
type Entry struct {
	Name        string
	Performance cpu.Performance
	Err         error
}

// Table stores collected benchmark entries.
type Table struct {
	mu      sync.Mutex
	entries []Entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add inserts an entry into the table.
func (t *Table) Add(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a copy of all entries, sorted by cycle count ascending
// (fastest program first), with failed entries sorted to the end.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Err != nil) != (out[j].Err != nil) {
			return out[i].Err == nil
		}
		if out[i].Performance.Cycles != out[j].Performance.Cycles {
			return out[i].Performance.Cycles < out[j].Performance.Cycles
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
