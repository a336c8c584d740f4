package tracking

import "posturemonitor/internal/models"

// Entry is the continuity memory for one side.
type Entry struct {
	Range  string
	Row    models.LogRow
	HasRow bool
}

// State keeps one Entry per side. The zero value is empty.
type State struct {
	entries [len(models.Sides)]Entry
}

// Observe reports whether rangeLabel continues the side's current run. When it
// does, the current row is returned with ok set.
func (s *State) Observe(side models.Side, rangeLabel string) (models.LogRow, bool) {
	e := s.entries[side]
	if e.HasRow && e.Range == rangeLabel {
		return e.Row, true
	}
	return models.LogRow{}, false
}

// Set makes row the side's current row for rangeLabel.
func (s *State) Set(side models.Side, rangeLabel string, row models.LogRow) {
	s.entries[side] = Entry{Range: rangeLabel, Row: row, HasRow: true}
}

// Current returns the side's entry.
func (s *State) Current(side models.Side) Entry {
	return s.entries[side]
}

// Reset forgets both sides.
func (s *State) Reset() {
	s.entries = [len(models.Sides)]Entry{}
}
