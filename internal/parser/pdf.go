package parser

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docforge/internal/ir"
)

// PDFParser handles PDF files. Layout gives no explicit structure, so
// headings are inferred from font metrics: lines set notably larger than
// the document's body size become headings, ranked by size. Every such
// inference carries a confidence and a reason.
//
// When the Go library cannot read a file, pdftotext is tried as a fallback
// and the plain-text heuristics take over.
type PDFParser struct {
	FallbackPdftotext bool
}

// headingSizeRatio is the minimum font-size ratio to the body text for a
// line to be considered a heading.
const headingSizeRatio = 1.12

func (p *PDFParser) Parse(r io.Reader, filename string) (*ir.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docforge-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc := newDocument("pdf", filename)

	pages, err := extractPDFPages(tmpPath)
	if err != nil || countLines(pages) == 0 {
		if !p.FallbackPdftotext {
			if err == nil {
				err = fmt.Errorf("no extractable text")
			}
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
		return p.parseWithPdftotext(tmpPath, doc)
	}
	doc.Metadata.PageCount = len(pages)

	doc.Furniture = detectFurniture(pages)
	buildPDFBody(doc, pages)
	return doc, nil
}

// pdfLine is one visual line of text assembled from positioned fragments.
type pdfLine struct {
	y         float64
	text      string
	size      float64 // dominant font size, points
	font      string
	furniture bool
}

type pdfPage struct {
	num   int
	lines []pdfLine
}

func countLines(pages []pdfPage) int {
	n := 0
	for _, p := range pages {
		n += len(p.lines)
	}
	return n
}

// extractPDFPages reads positioned text fragments and groups them into
// lines per page. The underlying library panics on some malformed files,
// so the extraction is fenced.
func extractPDFPages(path string) (pages []pdfPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf content: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		lines := assembleLines(content.Text)
		if len(lines) == 0 {
			continue
		}
		pages = append(pages, pdfPage{num: i, lines: lines})
	}
	return pages, nil
}

// assembleLines groups fragments sharing a baseline into lines, top of
// page first.
func assembleLines(texts []pdflib.Text) []pdfLine {
	if len(texts) == 0 {
		return nil
	}
	sorted := make([]pdflib.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > 2 {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []pdfLine
	var cur pdfLine
	var buf strings.Builder
	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			cur.text = text
			lines = append(lines, cur)
		}
		buf.Reset()
	}
	for i, t := range sorted {
		if i == 0 || math.Abs(t.Y-cur.y) > 2 {
			if i > 0 {
				flush()
			}
			cur = pdfLine{y: t.Y, size: t.FontSize, font: t.Font}
		}
		if t.FontSize > cur.size {
			cur.size = t.FontSize
			cur.font = t.Font
		}
		buf.WriteString(t.S)
	}
	flush()
	return lines
}

// bodyFontSize finds the dominant font size, weighted by text length.
func bodyFontSize(pages []pdfPage) float64 {
	weight := make(map[float64]int)
	for _, p := range pages {
		for _, l := range p.lines {
			size := math.Round(l.size*2) / 2
			weight[size] += len(l.text)
		}
	}
	var body float64
	best := -1
	for size, w := range weight {
		if w > best || (w == best && size < body) {
			body, best = size, w
		}
	}
	return body
}

// headingLevels ranks the font sizes used above the body size: the
// largest becomes level 1, the next level 2, and so on.
func headingLevels(pages []pdfPage, body float64) map[float64]int {
	seen := make(map[float64]bool)
	for _, p := range pages {
		for _, l := range p.lines {
			size := math.Round(l.size*2) / 2
			if size >= body*headingSizeRatio {
				seen[size] = true
			}
		}
	}
	sizes := make([]float64, 0, len(seen))
	for size := range seen {
		sizes = append(sizes, size)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))

	levels := make(map[float64]int, len(sizes))
	for i, size := range sizes {
		levels[size] = i + 1
	}
	return levels
}

// detectFurniture finds repeating first and last lines across pages and
// marks them so they stay out of the body flow. Page numbers are
// normalized away before comparing.
func detectFurniture(pages []pdfPage) []ir.Furniture {
	if len(pages) < 3 {
		return nil
	}
	half := (len(pages) + 1) / 2

	type hit struct {
		text  string
		pages []int
	}
	scan := func(pick func(pdfPage) *pdfLine, kind string) *ir.Furniture {
		byText := make(map[string]*hit)
		for i := range pages {
			l := pick(pages[i])
			if l == nil {
				continue
			}
			key := stripDigits(l.text)
			if key == "" {
				continue
			}
			h := byText[key]
			if h == nil {
				h = &hit{text: l.text}
				byText[key] = h
			}
			h.pages = append(h.pages, pages[i].num)
		}
		for key, h := range byText {
			if len(h.pages) >= half {
				for i := range pages {
					if l := pick(pages[i]); l != nil && stripDigits(l.text) == key {
						l.furniture = true
					}
				}
				return &ir.Furniture{Kind: kind, Text: h.text, Pages: h.pages}
			}
		}
		return nil
	}

	var out []ir.Furniture
	if f := scan(func(p pdfPage) *pdfLine {
		if len(p.lines) == 0 {
			return nil
		}
		return &p.lines[0]
	}, ir.FurnitureHeader); f != nil {
		out = append(out, *f)
	}
	if f := scan(func(p pdfPage) *pdfLine {
		if len(p.lines) == 0 {
			return nil
		}
		return &p.lines[len(p.lines)-1]
	}, ir.FurnitureFooter); f != nil {
		out = append(out, *f)
	}
	return out
}

func stripDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// buildPDFBody classifies each line and assembles the heading tree.
// Consecutive body lines of a page merge into paragraphs, broken on
// vertical gaps clearly larger than the line pitch.
func buildPDFBody(doc *ir.Document, pages []pdfPage) {
	body := bodyFontSize(pages)
	levels := headingLevels(pages, body)

	b := &treeBuilder{}
	for _, page := range pages {
		var para strings.Builder
		var lastY, lastSize float64
		flush := func() {
			text := strings.TrimSpace(para.String())
			para.Reset()
			if text == "" {
				return
			}
			n := ir.NewParagraph(text)
			n.Page = page.num
			b.AddBlock(n)
		}
		for _, line := range page.lines {
			if line.furniture {
				continue
			}
			size := math.Round(line.size*2) / 2
			if level, ok := levels[size]; ok {
				flush()
				h := ir.NewHeading(level, line.text)
				h.Page = page.num
				h.Confidence = headingConfidence(line, size, body)
				h.Heading.Reason = fmt.Sprintf("font size %.1f vs body %.1f", size, body)
				b.AddHeading(h)
				lastY, lastSize = line.y, line.size
				continue
			}
			if para.Len() > 0 {
				if lastY-line.y > lastSize*1.8 {
					flush()
				} else {
					para.WriteString(" ")
				}
			}
			para.WriteString(line.text)
			lastY, lastSize = line.y, line.size
		}
		flush()
	}
	doc.Body = b.Body()
}

// headingConfidence scores a font-size heading inference. Bold faces,
// short lines and strong size contrast all raise it.
func headingConfidence(line pdfLine, size, body float64) float64 {
	confidence := 0.55
	if strings.Contains(strings.ToLower(line.font), "bold") {
		confidence += 0.15
	}
	if len(line.text) <= 80 {
		confidence += 0.1
	}
	if size >= body*1.5 {
		confidence += 0.1
	}
	if !strings.HasSuffix(line.text, ".") {
		confidence += 0.05
	}
	return math.Min(confidence, 0.95)
}

// parseWithPdftotext shells out to pdftotext and runs the plain-text
// heuristics over its output, page by page.
func (p *PDFParser) parseWithPdftotext(path string, doc *ir.Document) (*ir.Document, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	doc.Metadata.Parser = "pdftotext"

	pages := strings.Split(string(out), "\f")
	pageCount := 0
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		pageCount++
		nodes, err := parseTextBody(strings.NewReader(page), i+1)
		if err != nil {
			return nil, err
		}
		doc.Body = append(doc.Body, nodes...)
	}
	doc.Metadata.PageCount = pageCount
	return doc, nil
}
