// Package docx edits WordprocessingML templates in place: it resolves named
// slots to table cells or paragraphs and rewrites their content without
// touching the rest of the package.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const documentPart = "word/document.xml"

// Page geometry fallbacks in twips (A4 portrait, 2cm margins).
const (
	defaultPageWidth = 11906
	defaultMargin    = 1134
)

type part struct {
	name string
	data []byte
}

// Document is an opened .docx package. Only word/document.xml is parsed;
// every other part is carried through untouched.
type Document struct {
	parts []part
	xml   *etree.Document
	body  *etree.Element
}

// Open parses a .docx package from memory.
func Open(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx package: %w", err)
	}

	doc := &Document{}
	for _, f := range zr.File {
		b, err := readPart(f)
		if err != nil {
			return nil, err
		}
		doc.parts = append(doc.parts, part{name: f.Name, data: b})

		if f.Name != documentPart {
			continue
		}
		x := etree.NewDocument()
		if err := x.ReadFromBytes(b); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", documentPart, err)
		}
		doc.xml = x
	}

	if doc.xml == nil || doc.xml.Root() == nil {
		return nil, fmt.Errorf("docx package has no %s", documentPart)
	}
	doc.body = doc.xml.Root().SelectElement("w:body")
	if doc.body == nil {
		return nil, fmt.Errorf("%s has no body", documentPart)
	}
	return doc, nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
	}
	return b, nil
}

// Bytes serializes the package, keeping the original part order.
func (d *Document) Bytes() ([]byte, error) {
	main, err := d.xml.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", documentPart, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range d.parts {
		data := p.data
		if p.name == documentPart {
			data = main
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", p.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx package: %w", err)
	}
	return buf.Bytes(), nil
}

// Tables returns the top-level body tables in document order.
func (d *Document) Tables() []*etree.Element {
	return d.body.SelectElements("w:tbl")
}

// Paragraphs returns the top-level body paragraphs in document order.
func (d *Document) Paragraphs() []*etree.Element {
	return d.body.SelectElements("w:p")
}

// ParagraphTexts is the plain text of every body paragraph.
func (d *Document) ParagraphTexts() []string {
	var out []string
	for _, p := range d.Paragraphs() {
		out = append(out, paragraphText(p))
	}
	return out
}

// CellText returns the plain text of a table cell, lines joined by "\n".
func (d *Document) CellText(table, row, cell int) (string, bool) {
	tc, err := d.cell(table, row, cell)
	if err != nil {
		return "", false
	}
	return elementText(tc), true
}

func (d *Document) cell(table, row, cell int) (*etree.Element, error) {
	tables := d.Tables()
	if table < 0 || table >= len(tables) {
		return nil, fmt.Errorf("table %d out of range (%d tables)", table, len(tables))
	}
	rows := tables[table].SelectElements("w:tr")
	if row < 0 || row >= len(rows) {
		return nil, fmt.Errorf("row %d out of range (table %d has %d rows)", row, table, len(rows))
	}
	cells := rows[row].SelectElements("w:tc")
	if cell < 0 || cell >= len(cells) {
		return nil, fmt.Errorf("cell %d out of range (table %d row %d has %d cells)", cell, table, row, len(cells))
	}
	return cells[cell], nil
}

// UsableWidth is the page width minus left and right margins, in twips.
func (d *Document) UsableWidth() int {
	width, left, right := defaultPageWidth, defaultMargin, defaultMargin

	if sect := d.body.SelectElement("w:sectPr"); sect != nil {
		if sz := sect.SelectElement("w:pgSz"); sz != nil {
			width = attrInt(sz, "w:w", width)
		}
		if mar := sect.SelectElement("w:pgMar"); mar != nil {
			left = attrInt(mar, "w:left", left)
			right = attrInt(mar, "w:right", right)
		}
	}
	return width - left - right
}

func attrInt(el *etree.Element, key string, fallback int) int {
	v, err := strconv.Atoi(el.SelectAttrValue(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func isW(el *etree.Element, tag string) bool {
	return el.Space == "w" && el.Tag == tag
}

// descendants collects every w:<tag> element below el, depth first.
func descendants(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if isW(c, tag) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(el)
	return out
}

// paragraphsOf returns el itself when it is a paragraph, otherwise the
// paragraphs it contains.
func paragraphsOf(el *etree.Element) []*etree.Element {
	if isW(el, "p") {
		return []*etree.Element{el}
	}
	return descendants(el, "p")
}

func paragraphText(p *etree.Element) string {
	var sb strings.Builder
	for _, r := range descendants(p, "r") {
		for _, c := range r.ChildElements() {
			switch {
			case isW(c, "t"):
				sb.WriteString(c.Text())
			case isW(c, "tab"):
				sb.WriteString("\t")
			case isW(c, "br"), isW(c, "cr"):
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func elementText(el *etree.Element) string {
	var lines []string
	for _, p := range paragraphsOf(el) {
		lines = append(lines, paragraphText(p))
	}
	return strings.Join(lines, "\n")
}
