package parser

import (
	"strings"
	"testing"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Len() != 1 {
		t.Fatalf("expected 1 section, got %d", doc.Len())
	}
	s := doc.Sections[0]
	if s.Heading != "notes" || s.Level != 1 {
		t.Errorf("expected level-1 heading %q, got level-%d %q", "notes", s.Level, s.Heading)
	}
	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	if s.Text != want {
		t.Errorf("expected %q, got %q", want, s.Text)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Len() != 0 {
		t.Errorf("expected 0 sections for empty input, got %d", doc.Len())
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Runs of blank or whitespace-only lines collapse to one separator.
	input := "Para one.\n\n\n   \nPara two."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "gaps.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Sections[0].Text != "Para one.\n\nPara two." {
		t.Errorf("expected %q, got %q", "Para one.\n\nPara two.", doc.Sections[0].Text)
	}
}

func TestTextParser_HeadingLookalikeIsEscaped(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader("# not a heading\nplain"), "hash.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Len() != 1 {
		t.Fatalf("expected 1 section, got %d", doc.Len())
	}
	if doc.Sections[0].Text != "\\# not a heading\nplain" {
		t.Errorf("expected escaped body, got %q", doc.Sections[0].Text)
	}
}

func TestHTMLParser_ClampsHeadingLevels(t *testing.T) {
	input := `<html><head><title>Guide</title></head><body>
<p>Preface.</p>
<h2>Install</h2>
<p>Run it.</p>
<h4>Linux</h4>
<p>Use apt.</p>
<h1>Usage</h1>
<script>var x = 1;</script>
<ul><li>First</li><li>Second</li></ul>
</body></html>`
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := sectionHeadings(doc)
	want := []string{"Guide", "Install", "Linux", "Usage"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected headings %v, got %v", want, got)
	}
	levels := []int{1, 2, 3, 1}
	for i, l := range levels {
		if doc.Sections[i].Level != l {
			t.Errorf("section %q: expected level %d, got %d", want[i], l, doc.Sections[i].Level)
		}
	}
	if doc.Sections[0].Text != "Preface." {
		t.Errorf("expected preface under title, got %q", doc.Sections[0].Text)
	}
	if doc.Sections[3].Text != "First\n\nSecond" {
		t.Errorf("expected list items as paragraphs, got %q", doc.Sections[3].Text)
	}
}

func TestCSVParser_BatchesRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("name,age\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("n,1\n")
	}
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(sb.String()), "people.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sectionHeadings(doc)
	want := []string{"people", "Rows 2-21", "Rows 22-26"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected headings %v, got %v", want, got)
	}
	if doc.Sections[0].Text != "Columns: name, age" {
		t.Errorf("expected columns line, got %q", doc.Sections[0].Text)
	}
	if !strings.HasPrefix(doc.Sections[1].Text, "name: n, age: 1\n") {
		t.Errorf("expected row rendering, got %q", doc.Sections[1].Text)
	}
}

func TestPagesToDocument(t *testing.T) {
	doc, err := pagesToDocument("report", []string{"Page one text.", "  ", "Page three text."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sectionHeadings(doc)
	want := []string{"report", "Page 1", "Page 3"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected headings %v, got %v", want, got)
	}
	if doc.Sections[2].Text != "Page three text." {
		t.Errorf("expected page text, got %q", doc.Sections[2].Text)
	}
}
