package docx

import (
	"math"
	"strconv"

	"github.com/beevik/etree"
)

// SafetyMargin is subtracted from the usable width before comparing table
// widths, in twips.
const SafetyMargin = 200

// NormalizeTableWidths shrinks every top-level table whose grid is wider than
// usableWidth-SafetyMargin. Grid columns, dxa cell widths and a dxa table
// width are scaled by one ratio and the table is centered. Tables within
// budget are not touched. It returns the number of tables scaled.
func NormalizeTableWidths(doc *Document, usableWidth int) int {
	budget := usableWidth - SafetyMargin
	if budget <= 0 {
		return 0
	}

	scaled := 0
	for _, tbl := range doc.Tables() {
		grid := tbl.SelectElement("w:tblGrid")
		if grid == nil {
			continue
		}
		cols := grid.SelectElements("w:gridCol")

		sum := 0
		for _, col := range cols {
			sum += attrInt(col, "w:w", 0)
		}
		if sum <= budget {
			continue
		}

		ratio := float64(budget) / float64(sum)
		for _, col := range cols {
			scaleAttr(col, ratio)
		}
		for _, tr := range tbl.SelectElements("w:tr") {
			for _, tc := range tr.SelectElements("w:tc") {
				tcPr := tc.SelectElement("w:tcPr")
				if tcPr == nil {
					continue
				}
				if w := tcPr.SelectElement("w:tcW"); w != nil && isDxa(w) {
					scaleAttr(w, ratio)
				}
			}
		}

		tblPr := tbl.SelectElement("w:tblPr")
		if tblPr == nil {
			tblPr = etree.NewElement("w:tblPr")
			tbl.InsertChildAt(0, tblPr)
		}
		tblW := tblPr.SelectElement("w:tblW")
		if tblW != nil && isDxa(tblW) {
			scaleAttr(tblW, ratio)
		}
		center(tblPr, tblW)
		scaled++
	}
	return scaled
}

func isDxa(el *etree.Element) bool {
	t := el.SelectAttrValue("w:type", "dxa")
	return t == "dxa" || t == ""
}

func scaleAttr(el *etree.Element, ratio float64) {
	w := attrInt(el, "w:w", 0)
	if w <= 0 {
		return
	}
	el.CreateAttr("w:w", strconv.Itoa(int(math.Floor(float64(w)*ratio))))
}

func center(tblPr, tblW *etree.Element) {
	if jc := tblPr.SelectElement("w:jc"); jc != nil {
		jc.CreateAttr("w:val", "center")
		return
	}
	jc := etree.NewElement("w:jc")
	jc.CreateAttr("w:val", "center")
	if tblW != nil {
		tblPr.InsertChildAt(tblW.Index()+1, jc)
		return
	}
	tblPr.AddChild(jc)
}
