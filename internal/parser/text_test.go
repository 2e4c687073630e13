package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docforge/internal/ir"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Metadata.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Metadata.Title)
	}
	if len(doc.Body) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(doc.Body))
	}

	want := []string{
		"First paragraph line one. First paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	for i, w := range want {
		n := doc.Body[i]
		if n.Variant != ir.Paragraph {
			t.Fatalf("node[%d] variant = %q", i, n.Variant)
		}
		if got := ir.RunText(n.Paragraph.Runs); got != w {
			t.Errorf("node[%d]: expected %q, got %q", i, w, got)
		}
	}
}

func TestTextParser_NumberedHeadings(t *testing.T) {
	input := `1. Introduction

Opening words.

1.1 Background

More detail.

2. Requirements

The requirements.`
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "spec.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Body) != 2 {
		t.Fatalf("expected 2 top-level headings, got %d: %+v", len(doc.Body), doc.Body)
	}
	intro := doc.Body[0]
	if intro.Variant != ir.Heading || intro.Heading.Level != 1 {
		t.Fatalf("expected level-1 heading, got %+v", intro)
	}
	if intro.Confidence >= 1.0 {
		t.Errorf("heuristic heading confidence = %v, want < 1.0", intro.Confidence)
	}
	if intro.Heading.Reason == "" {
		t.Error("heuristic heading has no reason")
	}

	// 1.1 nests under 1. as a level-2 heading.
	var sub *ir.Node
	for _, c := range intro.Children {
		if c.Variant == ir.Heading {
			sub = c
		}
	}
	if sub == nil || sub.Heading.Level != 2 {
		t.Fatalf("expected nested level-2 heading, got %+v", intro.Children)
	}
}

func TestTextParser_AllCapsHeading(t *testing.T) {
	input := "OVERVIEW\n\nBody text follows."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "caps.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 1 || doc.Body[0].Variant != ir.Heading {
		t.Fatalf("expected all-caps line to become a heading, got %+v", doc.Body)
	}
	h := doc.Body[0]
	if h.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", h.Confidence)
	}
	if len(h.Children) != 1 || h.Children[0].Variant != ir.Paragraph {
		t.Errorf("body text not nested under heading: %+v", h.Children)
	}
}

func TestTextParser_LongLinesStayParagraphs(t *testing.T) {
	long := strings.Repeat("WORD ", 30)
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(long), "long.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 1 || doc.Body[0].Variant != ir.Paragraph {
		t.Errorf("long all-caps line misclassified: %+v", doc.Body)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 0 {
		t.Errorf("expected 0 nodes for empty input, got %d", len(doc.Body))
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	// Lines with only whitespace should be treated as blank.
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(doc.Body))
	}
}
