// Package channels tracks the per-channel instrument selection and the set
// of sounding keys of one synthesizer instance.
//
// A Table is not safe for concurrent use; the owning instance serialises
// access under its own lock.
package channels

import "github.com/leandrodaf/midisynth/sdk/contracts"

// State is the last applied selection and the sounding keys of one channel.
type State struct {
	BankSelect int
	Program    int
	Programmed bool // false until a program has been applied to the engine
	active     [contracts.MaxKey + 1]bool
	count      int
}

// IsActive reports whether key is currently sounding.
func (s *State) IsActive(key int) bool {
	if key < 0 || key > contracts.MaxKey {
		return false
	}
	return s.active[key]
}

// ActiveNotes returns the sounding keys in ascending order.
func (s *State) ActiveNotes() []int {
	keys := make([]int, 0, s.count)
	for k, on := range s.active {
		if on {
			keys = append(keys, k)
		}
	}
	return keys
}

// Table holds one State per channel, indexed by channel number.
type Table struct {
	channels []State
}

// NewTable creates a table of n channels, capped at contracts.MaxChannels.
func NewTable(n int) *Table {
	if n <= 0 || n > contracts.MaxChannels {
		n = contracts.MaxChannels
	}
	return &Table{channels: make([]State, n)}
}

// Len returns the number of channels.
func (t *Table) Len() int { return len(t.channels) }

// Channel returns a copy of the state of ch.
func (t *Table) Channel(ch int) (State, bool) {
	if ch < 0 || ch >= len(t.channels) {
		return State{}, false
	}
	return t.channels[ch], true
}

// NeedsProgram reports whether applying (bank, program) to ch would change it.
func (t *Table) NeedsProgram(ch, bank, program int) bool {
	s := &t.channels[ch]
	return !s.Programmed || s.BankSelect != bank || s.Program != program
}

// SetProgram records that (bank, program) is applied to ch.
func (t *Table) SetProgram(ch, bank, program int) {
	s := &t.channels[ch]
	s.BankSelect, s.Program, s.Programmed = bank, program, true
}

// NoteOn marks key as sounding on ch. Re-triggering an active key is allowed.
func (t *Table) NoteOn(ch, key int) {
	s := &t.channels[ch]
	if !s.active[key] {
		s.active[key] = true
		s.count++
	}
}

// NoteOff clears key on ch and reports whether it was sounding.
func (t *Table) NoteOff(ch, key int) bool {
	s := &t.channels[ch]
	if !s.active[key] {
		return false
	}
	s.active[key] = false
	s.count--
	return true
}

// ClearNotes forgets every sounding key on every channel.
func (t *Table) ClearNotes() {
	for i := range t.channels {
		t.channels[i].active = [contracts.MaxKey + 1]bool{}
		t.channels[i].count = 0
	}
}

// ActiveCount returns the total number of sounding keys.
func (t *Table) ActiveCount() int {
	n := 0
	for i := range t.channels {
		n += t.channels[i].count
	}
	return n
}

// Reset clears notes and program selections.
func (t *Table) Reset() {
	for i := range t.channels {
		t.channels[i] = State{}
	}
}
