package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docforge/internal/ir"
)

// TextParser handles plain text files. Structure is inferred from line
// shape, so every heading it emits carries a reduced confidence.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*ir.Document, error) {
	doc := newDocument("text", filename)
	body, err := parseTextBody(r, 0)
	if err != nil {
		return nil, err
	}
	doc.Body = body
	return doc, nil
}

// sectionNumberRe matches numbered section prefixes like "3", "2.1" or
// "1.4.2)".
var sectionNumberRe = regexp.MustCompile(`^(\d+(\.\d+)*)[.)]?\s+\S`)

// parseTextBody splits plain text into blank-line-separated paragraphs and
// classifies single-line paragraphs as headings where their shape suggests
// one. page is attached to every node, 0 meaning unpaged input.
func parseTextBody(r io.Reader, page int) ([]*ir.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			paragraphs = append(paragraphs, current.String())
			current.Reset()
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	b := &treeBuilder{}
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if level, confidence, reason := classifyTextLine(para); level > 0 {
			h := ir.NewHeading(level, para)
			h.Confidence = confidence
			h.Heading.Reason = reason
			h.Page = page
			b.AddHeading(h)
			continue
		}
		n := ir.NewParagraph(strings.ReplaceAll(para, "\n", " "))
		n.Page = page
		b.AddBlock(n)
	}
	return b.Body(), nil
}

// classifyTextLine decides whether a paragraph looks like a heading.
// Multi-line paragraphs and long lines never do.
func classifyTextLine(para string) (level int, confidence float64, reason string) {
	if strings.Contains(para, "\n") || len(para) > 80 || para == "" {
		return 0, 0, ""
	}
	if m := sectionNumberRe.FindStringSubmatch(para); m != nil {
		depth := strings.Count(m[1], ".") + 1
		return depth, 0.8, "numbered section prefix"
	}
	if isAllCaps(para) && len(para) <= 60 {
		return 1, 0.6, "short all-caps line"
	}
	return 0, 0, ""
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= 3
}
