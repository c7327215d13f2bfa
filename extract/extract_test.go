package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestFromFilePlainText(t *testing.T) {
	res, err := FromFile("notes.txt", strings.NewReader("build a landing page"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Text != "build a landing page" || res.Kind != "text" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestFromFileMarkdown(t *testing.T) {
	res, err := FromFile("README.MD", strings.NewReader("# Plan"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Kind != "text" {
		t.Fatalf("markdown should be treated as text, got %q", res.Kind)
	}
}

func TestFromFileCSV(t *testing.T) {
	csv := "task,owner\nDesign homepage,Ana\nWrite copy,Ben\n"
	res, err := FromFile("tasks.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Kind != "csv" {
		t.Fatalf("unexpected kind: %q", res.Kind)
	}
	for _, want := range []string{"Row 1:", "task: Design homepage", "owner: Ana", "Row 2:", "task: Write copy"} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("missing %q in rendered csv:\n%s", want, res.Text)
		}
	}
}

func TestFromFileCSVRaggedRow(t *testing.T) {
	csv := "a,b\n1,2,3\n"
	res, err := FromFile("data.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(res.Text, "column 3: 3") {
		t.Fatalf("extra column not labelled:\n%s", res.Text)
	}
}

func TestFromFileUnsupported(t *testing.T) {
	for _, name := range []string{"report.pdf", "spec.docx", "old.doc", "sheet.xlsx", "image.png"} {
		if _, err := FromFile(name, strings.NewReader("x")); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("%s: expected ErrUnsupported, got %v", name, err)
		}
	}
}
