package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
)

const (
	Unchecked = "□"
	Checked   = "☑"
)

const (
	DefaultFont          = "나눔고딕"
	DefaultCellSize      = 10
	DefaultParagraphSize = 11
)

// Filler writes into resolved slots under a pinned font. It holds no
// per-document state and is safe to share across goroutines.
type Filler struct {
	Font          string
	CellSize      int // points
	ParagraphSize int // points

	log zerolog.Logger
}

func NewFiller(log zerolog.Logger) *Filler {
	return &Filler{
		Font:          DefaultFont,
		CellSize:      DefaultCellSize,
		ParagraphSize: DefaultParagraphSize,
		log:           log.With().Str("component", "docx_filler").Logger(),
	}
}

// SetText replaces the slot's content with text. Cell and paragraph
// properties survive; every previous run is dropped. In a cell each line
// becomes its own paragraph, in a paragraph lines are joined by breaks.
func (f *Filler) SetText(slot Slot, text string) {
	if slot.el == nil {
		return
	}
	lines := splitLines(text)

	if isW(slot.el, "p") {
		f.rewriteParagraph(slot.el, lines, f.ParagraphSize)
		return
	}

	tc := slot.el
	var pPr *etree.Element
	if p := tc.SelectElement("w:p"); p != nil {
		if props := p.SelectElement("w:pPr"); props != nil {
			pPr = props.Copy()
		}
	}
	for _, c := range tc.ChildElements() {
		if !isW(c, "tcPr") {
			tc.RemoveChild(c)
		}
	}
	for _, line := range lines {
		p := tc.CreateElement("w:p")
		if pPr != nil {
			p.AddChild(pPr.Copy())
		}
		if line != "" {
			f.appendRun(p, []string{line}, f.CellSize)
		}
	}
}

func (f *Filler) rewriteParagraph(p *etree.Element, lines []string, size int) {
	for _, c := range p.ChildElements() {
		if !isW(c, "pPr") {
			p.RemoveChild(c)
		}
	}
	if len(lines) == 1 && lines[0] == "" {
		return
	}
	f.appendRun(p, lines, size)
}

func (f *Filler) appendRun(p *etree.Element, lines []string, size int) {
	r := p.CreateElement("w:r")

	rPr := r.CreateElement("w:rPr")
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", f.Font)
	fonts.CreateAttr("w:hAnsi", f.Font)
	fonts.CreateAttr("w:eastAsia", f.Font)
	fonts.CreateAttr("w:cs", f.Font)
	halfPoints := strconv.Itoa(size * 2)
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPoints)
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPoints)

	for i, line := range lines {
		if i > 0 {
			r.CreateElement("w:br")
		}
		t := r.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(line)
	}
}

// ToggleSingleSelect checks the glyphs of group[selected] and unchecks every
// other slot. A selected slot without any glyph gets one prefixed. Passing a
// negative index unchecks the whole group.
func (f *Filler) ToggleSingleSelect(group []Slot, selected int) {
	for i, slot := range group {
		if slot.el == nil {
			continue
		}
		texts := descendants(slot.el, "t")

		if i != selected {
			for _, t := range texts {
				replaceText(t, Checked, Unchecked, -1)
			}
			continue
		}

		hasGlyph := false
		for _, t := range texts {
			if strings.Contains(t.Text(), Unchecked) || strings.Contains(t.Text(), Checked) {
				hasGlyph = true
			}
			replaceText(t, Unchecked, Checked, -1)
		}
		if !hasGlyph {
			f.prefixCheck(slot.el)
		}
	}
}

// ToggleMultiSelect checks, for every key, each line across cells whose text
// contains keyToLabel[key]. A line is a run of text inside one paragraph
// delimited by soft breaks. Keys without a label or without any matching line
// are logged and returned; they never abort the fill.
func (f *Filler) ToggleMultiSelect(cells []Slot, keys []string, keyToLabel map[string]string) []string {
	var unmatched []string
	for _, key := range keys {
		label, ok := keyToLabel[key]
		if !ok || label == "" {
			f.log.Warn().Str("key", key).Msg("no label mapped for option key")
			unmatched = append(unmatched, key)
			continue
		}
		if f.checkLines(cells, label) == 0 {
			f.log.Warn().Str("key", key).Str("label", label).Msg("option label not found in template")
			unmatched = append(unmatched, key)
		}
	}
	return unmatched
}

// checkLines checks every line containing label and returns how many matched.
func (f *Filler) checkLines(cells []Slot, label string) int {
	matched := 0
	for _, slot := range cells {
		if slot.el == nil {
			continue
		}
		for _, p := range paragraphsOf(slot.el) {
			for _, l := range linesOf(p) {
				if !strings.Contains(l.text(), label) {
					continue
				}
				f.checkTextLine(p, l)
				matched++
			}
		}
	}
	return matched
}

// checkTextLine flips the first unchecked glyph of the line, or prefixes one
// when the line carries no glyph at all.
func (f *Filler) checkTextLine(p *etree.Element, l textLine) {
	for _, t := range l.texts {
		if strings.Contains(t.Text(), Checked) {
			return
		}
		if strings.Contains(t.Text(), Unchecked) {
			replaceText(t, Unchecked, Checked, 1)
			return
		}
	}
	if len(l.texts) == 0 {
		f.prefixCheck(p)
		return
	}
	t := l.texts[0]
	t.CreateAttr("xml:space", "preserve")
	t.SetText(Checked + " " + t.Text())
}

// textLine is the w:t nodes between two soft breaks of one paragraph.
type textLine struct {
	texts []*etree.Element
}

func (l textLine) text() string {
	var sb strings.Builder
	for _, t := range l.texts {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// linesOf splits a paragraph at w:br and w:cr, in document order.
func linesOf(p *etree.Element) []textLine {
	lines := []textLine{{}}
	for _, r := range descendants(p, "r") {
		for _, c := range r.ChildElements() {
			switch {
			case isW(c, "t"):
				last := &lines[len(lines)-1]
				last.texts = append(last.texts, c)
			case isW(c, "br"), isW(c, "cr"):
				lines = append(lines, textLine{})
			}
		}
	}
	return lines
}

// ReplaceText substitutes the first occurrence of old inside the slot. When
// old is split across runs the owning paragraph is collapsed into one run.
func (f *Filler) ReplaceText(slot Slot, old, replacement string) bool {
	if slot.el == nil || old == "" {
		return false
	}
	for _, p := range paragraphsOf(slot.el) {
		for _, t := range descendants(p, "t") {
			if strings.Contains(t.Text(), old) {
				replaceText(t, old, replacement, 1)
				return true
			}
		}
		text := paragraphText(p)
		if strings.Contains(text, old) {
			f.rewriteParagraph(p, splitLines(strings.Replace(text, old, replacement, 1)), f.ParagraphSize)
			return true
		}
	}
	return false
}

func (f *Filler) prefixCheck(el *etree.Element) {
	if texts := descendants(el, "t"); len(texts) > 0 {
		t := texts[0]
		t.CreateAttr("xml:space", "preserve")
		t.SetText(Checked + " " + t.Text())
		return
	}

	p := el
	if !isW(el, "p") {
		p = el.SelectElement("w:p")
		if p == nil {
			p = el.CreateElement("w:p")
		}
	}
	size := f.CellSize
	if p == el {
		size = f.ParagraphSize
	}
	f.appendRun(p, []string{Checked}, size)
}

func replaceText(t *etree.Element, old, replacement string, n int) {
	text := t.Text()
	if !strings.Contains(text, old) {
		return
	}
	t.SetText(strings.Replace(text, old, replacement, n))
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
