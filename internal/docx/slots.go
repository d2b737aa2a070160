package docx

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

type SlotKind int

const (
	CellSlot SlotKind = iota
	ParagraphSlot
)

// SlotRef is a structural coordinate: a table cell, or the first body
// paragraph containing one of Anchors.
type SlotRef struct {
	Kind    SlotKind
	Table   int
	Row     int
	Cell    int
	Anchors []string
}

func Cell(table, row, cell int) SlotRef {
	return SlotRef{Kind: CellSlot, Table: table, Row: row, Cell: cell}
}

func Paragraph(anchors ...string) SlotRef {
	return SlotRef{Kind: ParagraphSlot, Anchors: anchors}
}

func (r SlotRef) String() string {
	if r.Kind == ParagraphSlot {
		return fmt.Sprintf("paragraph%q", r.Anchors)
	}
	return fmt.Sprintf("table[%d].row[%d].cell[%d]", r.Table, r.Row, r.Cell)
}

// Layout maps logical field names to template coordinates. A template
// revision only needs its Layout updated.
type Layout map[string]SlotRef

// DataShapeError reports a template that lacks the structure a section
// expects. It is never fatal: the section is skipped.
type DataShapeError struct {
	Section string
	Slot    string
	Reason  string
}

func (e *DataShapeError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("slot %s: %s", e.Slot, e.Reason)
	}
	return fmt.Sprintf("section %s: slot %s: %s", e.Section, e.Slot, e.Reason)
}

// Slot is a resolved location. The zero Slot is inert: filler operations on
// it do nothing.
type Slot struct {
	Name string
	Kind SlotKind
	el   *etree.Element
}

func (s Slot) Resolved() bool { return s.el != nil }

// Slots holds one resolution pass of a Layout. Coordinates are fixed at
// resolution time, so writing into one slot never shifts another.
type Slots struct {
	resolved map[string]Slot
	failures map[string]string
}

// Resolve binds every entry of layout against the current document state.
func (d *Document) Resolve(layout Layout) *Slots {
	s := &Slots{
		resolved: make(map[string]Slot, len(layout)),
		failures: map[string]string{},
	}

	for name, ref := range layout {
		el, err := d.locate(ref)
		if err != nil {
			s.failures[name] = err.Error()
			continue
		}
		s.resolved[name] = Slot{Name: name, Kind: ref.Kind, el: el}
	}
	return s
}

func (d *Document) locate(ref SlotRef) (*etree.Element, error) {
	if ref.Kind == CellSlot {
		return d.cell(ref.Table, ref.Row, ref.Cell)
	}
	for _, p := range d.Paragraphs() {
		text := paragraphText(p)
		for _, anchor := range ref.Anchors {
			if anchor != "" && strings.Contains(text, anchor) {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("no paragraph contains %q", ref.Anchors)
}

// Get returns a resolved slot, or the zero Slot when resolution failed.
func (s *Slots) Get(name string) Slot {
	return s.resolved[name]
}

// Group returns slots in the given order; unresolved names yield zero Slots
// so positions within the group are kept.
func (s *Slots) Group(names ...string) []Slot {
	out := make([]Slot, len(names))
	for i, name := range names {
		out[i] = s.resolved[name]
	}
	return out
}

// Require checks that all names resolved. The first missing one is
// reported as a DataShapeError attributed to section.
func (s *Slots) Require(section string, names ...string) error {
	for _, name := range names {
		if _, ok := s.resolved[name]; ok {
			continue
		}
		reason, ok := s.failures[name]
		if !ok {
			reason = "not declared in layout"
		}
		return &DataShapeError{Section: section, Slot: name, Reason: reason}
	}
	return nil
}
