package shell

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lancetdoc/lancet/core/engine"
	"github.com/lancetdoc/lancet/core/journal"
	"github.com/lancetdoc/lancet/internal/history"
)

const wNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="` + wNS + `"><w:body>` + body + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   document,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func writeDocx(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	if err := os.WriteFile(path, buildDocx(t, body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func newShell() *Shell {
	return New(engine.NewSession(engine.Options{}), strings.NewReader(""), io.Discard)
}

func loadedShell(t *testing.T, body string) *Shell {
	t.Helper()
	sh := newShell()
	if out, _ := sh.Execute("load " + writeDocx(t, body)); strings.HasPrefix(out, "Error") {
		t.Fatalf("load failed: %s", out)
	}
	return sh
}

func TestExecuteLoadAndStats(t *testing.T) {
	sh := newShell()
	path := writeDocx(t,
		`<w:p><w:r><w:t>a</w:t></w:r></w:p><w:p><w:r><w:t>b</w:t></w:r></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p/></w:tc></w:tr></w:tbl>`)

	out, quit := sh.Execute("load " + path)
	if quit {
		t.Fatal("load requested quit")
	}
	want := "Loaded " + path + "\nStats: total_paragraphs=2, total_tables=1"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestExecuteLoadFailure(t *testing.T) {
	sh := newShell()
	out, _ := sh.Execute("load " + filepath.Join(t.TempDir(), "missing.docx"))
	if !strings.HasPrefix(out, "Error loading: ") {
		t.Errorf("output = %q, want Error loading prefix", out)
	}
}

func TestExecuteMutationMessages(t *testing.T) {
	sh := loadedShell(t,
		`<w:p><w:r><w:t>alpha</w:t></w:r></w:p><w:p><w:r><w:t>beta</w:t></w:r></w:p>`)

	tests := []struct {
		line string
		want string
	}{
		{`replace p0_r0 gamma`, "Updated Run p0_r0. Formatting preserved."},
		{`format p0_r0 bold=true`, "Formatted p0_r0: bold=true"},
		{`insert_after p0 fresh`, "Inserted new paragraph after p0."},
		{`delete p2`, "Deleted p2"},
		{`delete p0_r0`, "Deleted p0_r0"},
	}
	for _, tt := range tests {
		out, quit := sh.Execute(tt.line)
		if quit {
			t.Fatalf("%q requested quit", tt.line)
		}
		if out != tt.want {
			t.Errorf("Execute(%q) = %q, want %q", tt.line, out, tt.want)
		}
	}
}

func TestExecuteQuotedText(t *testing.T) {
	sh := loadedShell(t, `<w:p><w:r><w:t>old</w:t></w:r></w:p>`)

	out, _ := sh.Execute(`replace p0_r0 "two words"`)
	if out != "Updated Run p0_r0. Formatting preserved." {
		t.Fatalf("replace output = %q", out)
	}

	mapped, _ := sh.Execute("map")
	if !strings.Contains(mapped, `"two words"`) {
		t.Errorf("map missing quoted replacement:\n%s", mapped)
	}
}

func TestExecuteQuotedTextEscapes(t *testing.T) {
	cmd, err := parseLine(`replace p0_r0 "say \"hi\""`)
	if err != nil {
		t.Fatalf("parseLine() error = %v", err)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != `say "hi"` {
		t.Errorf("args = %q", cmd.Args)
	}
}

func TestExecuteUnquotedTextJoined(t *testing.T) {
	sh := loadedShell(t, `<w:p><w:r><w:t>x</w:t></w:r></w:p>`)

	if out, _ := sh.Execute("insert_after p0 New P"); out != "Inserted new paragraph after p0." {
		t.Fatalf("insert output = %q", out)
	}
	mapped, _ := sh.Execute("map")
	if !strings.Contains(mapped, `"New P"`) {
		t.Errorf("map missing joined text:\n%s", mapped)
	}
}

func TestExecuteFormatThreeWordForm(t *testing.T) {
	sh := loadedShell(t, `<w:p><w:r><w:t>x</w:t></w:r></w:p>`)

	out, _ := sh.Execute("format p0_r0 bold true")
	if out != "Formatted p0_r0: bold=true" {
		t.Errorf("output = %q", out)
	}
}

func TestExecuteUsageLines(t *testing.T) {
	sh := loadedShell(t, `<w:p><w:r><w:t>x</w:t></w:r></w:p>`)

	tests := []struct {
		line string
		want string
	}{
		{"load", "Usage: load [filename]"},
		{"replace p0_r0", "Usage: replace [id] [new text]"},
		{"insert_after p0", "Usage: insert_after [id] [new text]"},
		{"delete", "Usage: delete [id]"},
		{"format p0_r0", "Usage: format [id] [key=value...]"},
		{"save", "Usage: save [filename]"},
		{"validate", "Usage: validate [filename]"},
	}
	for _, tt := range tests {
		if out, _ := sh.Execute(tt.line); out != tt.want {
			t.Errorf("Execute(%q) = %q, want %q", tt.line, out, tt.want)
		}
	}
}

func TestExecuteRequiresDocument(t *testing.T) {
	sh := newShell()

	for _, line := range []string{"map", "replace p0_r0 x", "insert_after p0 x", "delete p0", "format p0_r0 bold=true", "save out.docx"} {
		if out, _ := sh.Execute(line); out != "No document loaded." {
			t.Errorf("Execute(%q) = %q, want No document loaded.", line, out)
		}
	}

	// validate is independent of the session and runs regardless.
	out, _ := sh.Execute("validate " + filepath.Join(t.TempDir(), "missing.docx"))
	if out != "FAIL: File is not a valid zip container." {
		t.Errorf("validate output = %q", out)
	}
}

func TestExecuteErrorKeepsSessionUsable(t *testing.T) {
	sh := loadedShell(t, `<w:p><w:r><w:t>x</w:t></w:r></w:p>`)

	out, quit := sh.Execute("replace p9_r0 nope")
	if quit {
		t.Fatal("error requested quit")
	}
	if out != "Error: unknown identifier: p9_r0" {
		t.Errorf("output = %q", out)
	}

	if out, _ := sh.Execute("replace p0_r0 fine"); out != "Updated Run p0_r0. Formatting preserved." {
		t.Errorf("session unusable after error: %q", out)
	}
}

func TestExecuteSaveAndValidate(t *testing.T) {
	sh := loadedShell(t, `<w:p><w:r><w:t>x</w:t></w:r></w:p>`)
	out := filepath.Join(t.TempDir(), "out.docx")

	if got, _ := sh.Execute("save " + out); got != "Saved to "+out {
		t.Fatalf("save output = %q", got)
	}
	if got, _ := sh.Execute("validate " + out); got != "PASS: Document structure and XML are valid." {
		t.Errorf("validate output = %q", got)
	}
}

func TestExecuteControlCommands(t *testing.T) {
	sh := newShell()

	tests := []struct {
		line     string
		wantQuit bool
	}{
		{"exit", true},
		{"quit", true},
		{"EXIT", true},
		{"", false},
		{"   ", false},
		{"frobnicate", false},
	}
	for _, tt := range tests {
		out, quit := sh.Execute(tt.line)
		if quit != tt.wantQuit {
			t.Errorf("Execute(%q) quit = %v, want %v", tt.line, quit, tt.wantQuit)
		}
		if tt.line == "frobnicate" && out != "Unknown command." {
			t.Errorf("unknown verb output = %q", out)
		}
	}

	if out, _ := sh.Execute("help"); !strings.Contains(out, "insert_after [id] [text...]") {
		t.Errorf("help output missing commands:\n%s", out)
	}
}

func TestExecuteUnparsableLine(t *testing.T) {
	sh := newShell()
	out, quit := sh.Execute(`replace p0_r0 "unterminated`)
	if quit {
		t.Fatal("parse error requested quit")
	}
	if !strings.HasPrefix(out, "Error: invalid command") {
		t.Errorf("output = %q", out)
	}
}

func TestRunLoop(t *testing.T) {
	var out bytes.Buffer
	session := engine.NewSession(engine.Options{})
	sh := New(session, strings.NewReader("help\nexit\n"), &out)

	if err := sh.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "--- Lancet Precision Document Editor ---") {
		t.Error("banner missing")
	}
	if !strings.Contains(text, "Commands:") {
		t.Error("help output missing")
	}
	if !strings.Contains(text, "> ") {
		t.Error("prompt missing")
	}
}

func TestRunLoopStopsOnEOF(t *testing.T) {
	var out bytes.Buffer
	sh := New(engine.NewSession(engine.Options{}), strings.NewReader(""), &out)
	if err := sh.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestExecuteJournalWritesTranscript(t *testing.T) {
	sh := loadedShell(t, `<w:p><w:r><w:t>alpha</w:t></w:r></w:p>`)
	if out, _ := sh.Execute(`replace p0_r0 "beta"`); strings.HasPrefix(out, "Error") {
		t.Fatalf("replace failed: %s", out)
	}

	path := filepath.Join(t.TempDir(), "session.jsonl")
	out, _ := sh.Execute("journal " + path)
	want := fmt.Sprintf("Journal written to %s (2 events).", path)
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	j, err := journal.Load(path)
	if err != nil {
		t.Fatalf("load journal: %v", err)
	}
	var types []string
	for _, ev := range j.Events {
		types = append(types, ev.Type)
	}
	wantTypes := []string{journal.EventLoaded, journal.EventReplace}
	if len(types) != len(wantTypes) {
		t.Fatalf("event types = %v, want %v", types, wantTypes)
	}
	for i := range wantTypes {
		if types[i] != wantTypes[i] {
			t.Errorf("event %d = %q, want %q", i, types[i], wantTypes[i])
		}
	}
}

func TestExecuteJournalCompressed(t *testing.T) {
	sh := loadedShell(t, `<w:p><w:r><w:t>alpha</w:t></w:r></w:p>`)

	path := filepath.Join(t.TempDir(), "session.jsonl.xz")
	if out, _ := sh.Execute("journal " + path); !strings.HasPrefix(out, "Journal written to ") {
		t.Fatalf("output = %q", out)
	}

	j, err := journal.Load(path)
	if err != nil {
		t.Fatalf("load compressed journal: %v", err)
	}
	if j.EventCount() != 1 {
		t.Errorf("EventCount() = %d, want 1", j.EventCount())
	}
}

func TestExecuteJournalEmpty(t *testing.T) {
	sh := newShell()
	if out, _ := sh.Execute("journal"); out != "Usage: journal [filename]" {
		t.Errorf("output = %q", out)
	}
	if out, _ := sh.Execute("journal somewhere.jsonl"); out != "Nothing recorded yet." {
		t.Errorf("output = %q", out)
	}
}

func TestExecuteHistory(t *testing.T) {
	store, err := history.OpenInMemory()
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	session := engine.NewSession(engine.Options{History: store})
	sh := New(session, strings.NewReader(""), io.Discard)

	if out, _ := sh.Execute("history"); out != "No history yet." {
		t.Errorf("output = %q, want No history yet.", out)
	}

	path := writeDocx(t, `<w:p><w:r><w:t>alpha</w:t></w:r></w:p>`)
	if out, _ := sh.Execute("load " + path); strings.HasPrefix(out, "Error") {
		t.Fatalf("load failed: %s", out)
	}
	saved := filepath.Join(t.TempDir(), "out.docx")
	if out, _ := sh.Execute("save " + saved); strings.HasPrefix(out, "Error") {
		t.Fatalf("save failed: %s", out)
	}

	out, _ := sh.Execute("history")
	if !strings.Contains(out, "Recent loads:") {
		t.Errorf("output %q missing loads section", out)
	}
	if !strings.Contains(out, "Recent saves:") {
		t.Errorf("output %q missing saves section", out)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output %q missing load path", out)
	}
	if !strings.Contains(out, saved) {
		t.Errorf("output %q missing save path", out)
	}
}

func TestExecuteHistoryDisabled(t *testing.T) {
	sh := newShell()
	if out, _ := sh.Execute("history"); out != "History is disabled." {
		t.Errorf("output = %q, want History is disabled.", out)
	}
}
