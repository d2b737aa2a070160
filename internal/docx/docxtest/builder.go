// Package docxtest builds minimal .docx packages in memory for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const rels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

// Builder accumulates body blocks. Cell text uses "\n" to separate
// paragraphs.
type Builder struct {
	blocks      []string
	pageWidth   int
	marginLeft  int
	marginRight int
}

func New() *Builder {
	return &Builder{pageWidth: 11906, marginLeft: 1134, marginRight: 1134}
}

func (b *Builder) Page(width, left, right int) *Builder {
	b.pageWidth, b.marginLeft, b.marginRight = width, left, right
	return b
}

func (b *Builder) Paragraph(text string) *Builder {
	b.blocks = append(b.blocks, paragraph(text))
	return b
}

// Table appends a table whose grid uses widths. Cells without a width
// entry get no tcW.
func (b *Builder) Table(widths []int, rows ...[]string) *Builder {
	var sb strings.Builder
	sb.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr><w:tblGrid>`)
	for _, w := range widths {
		fmt.Fprintf(&sb, `<w:gridCol w:w="%d"/>`, w)
	}
	sb.WriteString(`</w:tblGrid>`)
	for _, row := range rows {
		sb.WriteString(`<w:tr>`)
		for i, cell := range row {
			sb.WriteString(`<w:tc><w:tcPr>`)
			if i < len(widths) {
				fmt.Fprintf(&sb, `<w:tcW w:w="%d" w:type="dxa"/>`, widths[i])
			}
			sb.WriteString(`</w:tcPr>`)
			for _, line := range strings.Split(cell, "\n") {
				sb.WriteString(paragraph(line))
			}
			sb.WriteString(`</w:tc>`)
		}
		sb.WriteString(`</w:tr>`)
	}
	sb.WriteString(`</w:tbl>`)
	b.blocks = append(b.blocks, sb.String())
	return b
}

// Raw appends a pre-built body block.
func (b *Builder) Raw(block string) *Builder {
	b.blocks = append(b.blocks, block)
	return b
}

func (b *Builder) DocumentXML() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, block := range b.blocks {
		sb.WriteString(block)
	}
	fmt.Fprintf(&sb, `<w:sectPr><w:pgSz w:w="%d" w:h="16838"/><w:pgMar w:top="1134" w:right="%d" w:bottom="1134" w:left="%d"/></w:sectPr>`,
		b.pageWidth, b.marginRight, b.marginLeft)
	sb.WriteString(`</w:body></w:document>`)
	return sb.String()
}

// Bytes zips the document. It panics on writer failure, which cannot happen
// with an in-memory buffer.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range []struct{ name, body string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", rels},
		{"word/document.xml", b.DocumentXML()},
	} {
		w, err := zw.Create(p.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func paragraph(text string) string {
	if text == "" {
		return `<w:p/>`
	}
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(text))
	return `<w:p><w:r><w:t xml:space="preserve">` + esc.String() + `</w:t></w:r></w:p>`
}
