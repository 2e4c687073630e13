package docx

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docforge/internal/generator"
	"github.com/dgallion1/docforge/internal/ir"
)

// bulletGlyphs cycle across indentation depths of unordered lists.
var bulletGlyphs = [3]string{"•", "○", "▪"}

// orderedFormats returns the numFmt sequence applied across depths of an
// ordered list, starting from the list's declared marker. Depths beyond
// the sequence wrap around.
func orderedFormats(marker string) [3]string {
	switch marker {
	case ir.MarkerLowerLetter:
		return [3]string{ir.MarkerLowerLetter, ir.MarkerLowerRoman, ir.MarkerDecimal}
	case ir.MarkerUpperLetter:
		return [3]string{ir.MarkerUpperLetter, "upperRoman", ir.MarkerDecimal}
	case ir.MarkerLowerRoman:
		return [3]string{ir.MarkerLowerRoman, ir.MarkerDecimal, ir.MarkerLowerLetter}
	case ir.MarkerUpperRoman:
		return [3]string{"upperRoman", ir.MarkerDecimal, ir.MarkerLowerLetter}
	default:
		return [3]string{ir.MarkerDecimal, ir.MarkerLowerLetter, ir.MarkerLowerRoman}
	}
}

// numberingXML renders word/numbering.xml from the run's allocated
// definitions. Every definition owns a private abstract numbering, so no
// two lists continue each other's counters.
func numberingXML(defs []generator.NumberingDefinition) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
`)
	for _, def := range defs {
		fmt.Fprintf(&b, `    <w:abstractNum w:abstractNumId="%d">
        <w:multiLevelType w:val="hybridMultilevel"/>
`, def.ID)
		for lvl := 0; lvl < 9; lvl++ {
			writeNumberingLevel(&b, def, lvl)
		}
		b.WriteString("    </w:abstractNum>\n")
	}
	for _, def := range defs {
		fmt.Fprintf(&b, `    <w:num w:numId="%d">
        <w:abstractNumId w:val="%d"/>
    </w:num>
`, def.ID, def.ID)
	}
	b.WriteString(`</w:numbering>`)
	return []byte(b.String())
}

func writeNumberingLevel(b *strings.Builder, def generator.NumberingDefinition, lvl int) {
	indent := 720 * (lvl + 1)
	if def.Ordered {
		formats := orderedFormats(def.Marker)
		fmt.Fprintf(b, `        <w:lvl w:ilvl="%d">
            <w:start w:val="1"/>
            <w:numFmt w:val="%s"/>
            <w:lvlText w:val="%%%d."/>
            <w:lvlJc w:val="left"/>
            <w:pPr>
                <w:ind w:left="%d" w:hanging="360"/>
            </w:pPr>
        </w:lvl>
`, lvl, formats[lvl%3], lvl+1, indent)
		return
	}
	fmt.Fprintf(b, `        <w:lvl w:ilvl="%d">
            <w:start w:val="1"/>
            <w:numFmt w:val="bullet"/>
            <w:lvlText w:val="%s"/>
            <w:lvlJc w:val="left"/>
            <w:pPr>
                <w:ind w:left="%d" w:hanging="360"/>
            </w:pPr>
        </w:lvl>
`, lvl, bulletGlyphs[lvl%3], indent)
}
