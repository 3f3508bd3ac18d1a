package doctree

import (
	"testing"
)

func threeParagraphDoc(t *testing.T) *Document {
	t.Helper()
	return mustParse(t, docPart(`<w:p><w:r><w:t>alpha</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>beta</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>gamma</w:t></w:r></w:p>`))
}

func paragraphTexts(d *Document) []string {
	var out []string
	for _, p := range d.Paragraphs() {
		out = append(out, p.Text())
	}
	return out
}

func TestDocumentInsertAfter(t *testing.T) {
	doc := threeParagraphDoc(t)
	first := doc.Paragraphs()[0]

	inserted := &Paragraph{}
	run := &Run{}
	run.SetText("delta")
	inserted.Items = append(inserted.Items, run)

	if !doc.InsertAfter(first, inserted) {
		t.Fatal("InsertAfter() = false, want true")
	}
	want := []string{"alpha", "delta", "beta", "gamma"}
	got := paragraphTexts(doc)
	if len(got) != len(want) {
		t.Fatalf("got %d paragraphs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, got[i], want[i])
		}
	}

	orphan := &Paragraph{}
	if doc.InsertAfter(orphan, &Paragraph{}) {
		t.Error("InsertAfter() with detached target = true, want false")
	}
}

func TestDocumentRemove(t *testing.T) {
	doc := threeParagraphDoc(t)
	middle := doc.Paragraphs()[1]

	if !doc.Remove(middle) {
		t.Fatal("Remove() = false, want true")
	}
	want := []string{"alpha", "gamma"}
	got := paragraphTexts(doc)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("paragraphs after Remove() = %v, want %v", got, want)
	}
	if doc.Remove(middle) {
		t.Error("Remove() of detached paragraph = true, want false")
	}
}

func TestParagraphRemoveRun(t *testing.T) {
	doc := mustParse(t, docPart(`<w:p><w:r><w:t>one</w:t></w:r><w:r><w:t>two</w:t></w:r></w:p>`))
	para := doc.Paragraphs()[0]
	first := para.Runs()[0]

	if !para.RemoveRun(first) {
		t.Fatal("RemoveRun() = false, want true")
	}
	if got := para.Text(); got != "two" {
		t.Errorf("Text() = %q, want %q", got, "two")
	}
	if para.RemoveRun(first) {
		t.Error("RemoveRun() of detached run = true, want false")
	}

	// Deleting the last run leaves the paragraph in place.
	last := para.Runs()[0]
	if !para.RemoveRun(last) {
		t.Fatal("RemoveRun() = false, want true")
	}
	if got := len(doc.Paragraphs()); got != 1 {
		t.Errorf("document has %d paragraphs, want 1", got)
	}
	if got := len(para.Runs()); got != 0 {
		t.Errorf("paragraph has %d runs, want 0", got)
	}
}

func TestParagraphLastRun(t *testing.T) {
	doc := mustParse(t, docPart(`<w:p><w:r><w:t>body</w:t></w:r>`+
		`<w:bookmarkEnd w:id="0"/></w:p>`))
	para := doc.Paragraphs()[0]

	last := para.LastRun()
	if last == nil {
		t.Fatal("LastRun() = nil, want trailing run before fragment")
	}
	if got := last.Text(); got != "body" {
		t.Errorf("LastRun().Text() = %q, want %q", got, "body")
	}

	empty := &Paragraph{}
	if empty.LastRun() != nil {
		t.Error("LastRun() on empty paragraph = non-nil, want nil")
	}
}

func TestParagraphCloneShell(t *testing.T) {
	doc := mustParse(t, docPart(`<w:p w:rsidR="00AA0000"><w:pPr><w:pStyle w:val="Heading1"/></w:pPr>` +
		`<w:r><w:t>original</w:t></w:r></w:p>`))
	para := doc.Paragraphs()[0]

	clone := para.CloneShell()
	if clone.Props != para.Props {
		t.Errorf("clone Props = %q, want %q", clone.Props, para.Props)
	}
	if clone.Style != "Heading1" {
		t.Errorf("clone Style = %q, want %q", clone.Style, "Heading1")
	}
	if len(clone.Items) != 0 {
		t.Errorf("clone has %d items, want 0", len(clone.Items))
	}
	if clone.RawAttrs != "" {
		t.Errorf("clone RawAttrs = %q, want empty", clone.RawAttrs)
	}
	if clone.ID != "" {
		t.Errorf("clone ID = %q, want empty before assignment", clone.ID)
	}
}

func TestRunSetTextDropsNonText(t *testing.T) {
	doc := mustParse(t, docPart(`<w:p><w:r><w:t>a</w:t><w:br/><w:t>b</w:t></w:r></w:p>`))
	run := doc.Paragraphs()[0].Runs()[0]

	if got := run.Text(); got != "ab" {
		t.Fatalf("Text() = %q, want %q", got, "ab")
	}
	run.SetText("c")
	if got := len(run.Children); got != 1 {
		t.Errorf("run has %d children after SetText, want 1", got)
	}
	if got := run.Text(); got != "c" {
		t.Errorf("Text() = %q, want %q", got, "c")
	}
}

func TestRunPropsClone(t *testing.T) {
	on := true
	props := &RunProps{
		Bold:      &on,
		Underline: "single",
		Extra:     []string{`<w:color w:val="FF0000"/>`},
		Raw:       `<w:rPr><w:b/></w:rPr>`,
	}

	clone := props.Clone()
	*clone.Bold = false
	clone.Extra[0] = "changed"

	if !*props.Bold {
		t.Error("mutating clone Bold changed the original")
	}
	if props.Extra[0] != `<w:color w:val="FF0000"/>` {
		t.Error("mutating clone Extra changed the original")
	}
	if clone.Raw != props.Raw {
		t.Errorf("clone Raw = %q, want %q", clone.Raw, props.Raw)
	}

	if (*RunProps)(nil).Clone() != nil {
		t.Error("Clone() of nil props = non-nil, want nil")
	}
}

func TestRunPropsIsZero(t *testing.T) {
	on := true
	tests := []struct {
		name  string
		props *RunProps
		want  bool
	}{
		{"nil", nil, true},
		{"empty", &RunProps{}, true},
		{"bold", &RunProps{Bold: &on}, false},
		{"underline", &RunProps{Underline: "single"}, false},
		{"size", &RunProps{SizeHalf: 24}, false},
		{"extra only", &RunProps{Extra: []string{"<w:noProof/>"}}, false},
		{"raw only", &RunProps{Raw: "<w:rPr/>"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.props.IsZero(); got != tt.want {
				t.Errorf("IsZero() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocumentStats(t *testing.T) {
	doc := mustParse(t, docPart(`<w:p><w:r><w:t>a</w:t></w:r><w:r><w:t>b</w:t></w:r></w:p>`+
		`<w:tbl><w:tr/></w:tbl>`+
		`<w:p><w:r><w:t>c</w:t></w:r></w:p>`))
	paragraphs, runs, tables := doc.Stats()
	if paragraphs != 2 || runs != 3 || tables != 1 {
		t.Errorf("Stats() = (%d, %d, %d), want (2, 3, 1)", paragraphs, runs, tables)
	}
}
