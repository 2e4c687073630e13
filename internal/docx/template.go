package docx

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	godocx "github.com/fumiama/go-docx"

	"github.com/dgallion1/docforge/internal/config"
)

// templateName selects the encoder's template inside templateFS; the
// library resolves part paths as "xml/<name>/<part>".
const templateName = "docforge"

// templateFiles lists the static parts of the output package. Parts not
// generated here are served from the library's default template.
var templateFiles = []string{
	"_rels/.rels",
	"docProps/app.xml",
	"docProps/core.xml",
	"word/theme/theme1.xml",
	"word/fontTable.xml",
	"word/styles.xml",
	"word/numbering.xml",
	"[Content_Types].xml",
}

// templateFS serves the package template parts. The generated parts
// (styles, numbering, core properties) are rendered at open time, which
// happens during the final write: by then the encoder has collected the
// title and every numbering definition.
type templateFS struct {
	enc *Encoder
}

func (t *templateFS) Open(name string) (fs.File, error) {
	rel := strings.TrimPrefix(name, "xml/"+templateName+"/")
	switch rel {
	case "word/styles.xml":
		return newMemFile(rel, stylesXML(t.enc.cfg)), nil
	case "word/numbering.xml":
		return newMemFile(rel, numberingXML(t.enc.defs)), nil
	case "docProps/core.xml":
		return newMemFile(rel, coreXML(t.enc.title)), nil
	case "[Content_Types].xml":
		return newMemFile(rel, []byte(contentTypesXML)), nil
	default:
		return godocx.TemplateXMLFS.Open("xml/default/" + rel)
	}
}

// memFile adapts an in-memory part to fs.File.
type memFile struct {
	*bytes.Reader
	name string
}

func newMemFile(name string, data []byte) *memFile {
	return &memFile{Reader: bytes.NewReader(data), name: name}
}

func (f *memFile) Close() error               { return nil }
func (f *memFile) Stat() (fs.FileInfo, error) { return memFileInfo{f}, nil }

type memFileInfo struct{ f *memFile }

func (i memFileInfo) Name() string       { return i.f.name }
func (i memFileInfo) Size() int64        { return i.f.Reader.Size() }
func (i memFileInfo) Mode() fs.FileMode  { return 0o444 }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() any           { return nil }

var _ io.Reader = (*memFile)(nil)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
    <Default Extension="jpeg" ContentType="image/jpeg"/>
    <Default Extension="png" ContentType="image/png"/>
    <Default Extension="gif" ContentType="image/gif"/>
    <Default Extension="webp" ContentType="image/webp"/>
    <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
    <Default Extension="xml" ContentType="application/xml"/>
    <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
    <Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
    <Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>
    <Override PartName="/word/fontTable.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.fontTable+xml"/>
    <Override PartName="/word/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>
    <Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
    <Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>
</Types>`

// headingSizes holds half-point font sizes for heading levels 1..9.
var headingSizes = [9]int{32, 28, 26, 24, 22, 22, 22, 22, 22}

// stylesXML renders word/styles.xml: document defaults plus the named
// styles the encoder references (Normal, Heading 1..9, Caption,
// ListParagraph). Style IDs carry no spaces; display names keep the usual
// Word capitalization so the styles bind to the built-in gallery slots.
func stylesXML(cfg config.StyleConfig) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
    <w:docDefaults>
        <w:rPrDefault>
            <w:rPr>
                <w:rFonts w:asciiTheme="minorHAnsi" w:eastAsiaTheme="minorEastAsia" w:hAnsiTheme="minorHAnsi" w:cstheme="minorBidi"/>
                <w:sz w:val="22"/>
                <w:szCs w:val="22"/>
                <w:lang w:val="en-US"/>
            </w:rPr>
        </w:rPrDefault>
        <w:pPrDefault/>
    </w:docDefaults>
    <w:style w:type="paragraph" w:default="1" w:styleId="Normal">
        <w:name w:val="Normal"/>
        <w:qFormat/>
    </w:style>
`)
	for level := 1; level <= 9; level++ {
		fmt.Fprintf(&b, `    <w:style w:type="paragraph" w:styleId="%s">
        <w:name w:val="heading %d"/>
        <w:basedOn w:val="Normal"/>
        <w:next w:val="Normal"/>
        <w:qFormat/>
        <w:pPr>
            <w:keepNext/>
            <w:spacing w:before="240" w:after="60"/>
            <w:outlineLvl w:val="%d"/>
        </w:pPr>
        <w:rPr>
            <w:b/>
            <w:color w:val="2F5496"/>
            <w:sz w:val="%d"/>
            <w:szCs w:val="%d"/>
        </w:rPr>
    </w:style>
`, headingStyleID(cfg.HeadingPrefix, level), level, level-1,
			headingSizes[level-1], headingSizes[level-1])
	}
	b.WriteString(`    <w:style w:type="paragraph" w:styleId="Caption">
        <w:name w:val="caption"/>
        <w:basedOn w:val="Normal"/>
        <w:next w:val="Normal"/>
        <w:qFormat/>
        <w:pPr>
            <w:spacing w:after="200"/>
        </w:pPr>
        <w:rPr>
            <w:i/>
            <w:color w:val="44546A"/>
            <w:sz w:val="18"/>
        </w:rPr>
    </w:style>
    <w:style w:type="paragraph" w:styleId="ListParagraph">
        <w:name w:val="List Paragraph"/>
        <w:basedOn w:val="Normal"/>
        <w:qFormat/>
        <w:pPr>
            <w:ind w:left="720"/>
            <w:contextualSpacing/>
        </w:pPr>
    </w:style>
</w:styles>`)
	return []byte(b.String())
}

// headingStyleID converts a display style name ("Heading 3") to the
// OOXML style identifier ("Heading3").
func headingStyleID(prefix string, level int) string {
	return fmt.Sprintf("%s%d", strings.ReplaceAll(prefix, " ", ""), level)
}

// styleRef maps a display style name to its style identifier.
func styleRef(style string) string {
	return strings.ReplaceAll(style, " ", "")
}

func coreXML(title string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	if title != "" {
		b.WriteString("<dc:title>")
		xmlEscape(&b, title)
		b.WriteString("</dc:title>")
	}
	b.WriteString(`</cp:coreProperties>`)
	return []byte(b.String())
}

func xmlEscape(b *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(r)
		}
	}
}
