// CLI integration tests. These drive the lancet binary the way a user
// would and verify output, exit codes, and written files.
package integration

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lancetdoc/lancet/core/docx"
	"github.com/lancetdoc/lancet/core/journal"
)

func TestCLIVersion(t *testing.T) {
	stdout, _, exitCode := runLancet(t, "", "version")

	if exitCode != 0 {
		t.Errorf("exit code = %d, want 0", exitCode)
	}
	if !strings.Contains(stdout, "lancet version") {
		t.Errorf("version output missing version line: %s", stdout)
	}
	if !strings.Contains(stdout, "sqlite driver:") {
		t.Errorf("version output missing driver line: %s", stdout)
	}
}

func TestCLIHelp(t *testing.T) {
	stdout, stderr, _ := runLancet(t, "", "--help")

	combined := stdout + stderr
	for _, want := range []string{"edit", "run", "inspect", "validate", "serve", "version"} {
		if !strings.Contains(combined, want) {
			t.Errorf("help output missing command %q", want)
		}
	}
}

func TestCLIValidatePass(t *testing.T) {
	dir := t.TempDir()
	path := writeDocx(t, dir, "good.docx", `<w:p><w:r><w:t>fine</w:t></w:r></w:p>`)

	stdout, _, exitCode := runLancet(t, "", "validate", path)

	if exitCode != 0 {
		t.Errorf("exit code = %d, want 0", exitCode)
	}
	if !strings.Contains(stdout, "PASS: Document structure and XML are valid.") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCLIValidateFailures(t *testing.T) {
	dir := t.TempDir()
	notZip := writeScript(t, dir, "just text, not a package")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"not a zip", notZip, "FAIL: File is not a valid zip container."},
		{"missing file", dir + "/absent.docx", "FAIL: File is not a valid zip container."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, exitCode := runLancet(t, "", "validate", tt.path)
			if exitCode != 1 {
				t.Errorf("exit code = %d, want 1", exitCode)
			}
			if !strings.Contains(stdout, tt.want) {
				t.Errorf("stdout = %q, want %q", stdout, tt.want)
			}
		})
	}
}

func TestCLIValidateJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeDocx(t, dir, "good.docx", `<w:p><w:r><w:t>fine</w:t></w:r></w:p>`)

	stdout, _, exitCode := runLancet(t, "", "validate", "--json", path)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0; output: %s", exitCode, stdout)
	}
	var report struct {
		Status  string `json:"status"`
		Results []struct {
			CheckType string `json:"check_type"`
			Pass      bool   `json:"pass"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, stdout)
	}
	if report.Status != "pass" {
		t.Errorf("status = %q, want pass", report.Status)
	}
	if len(report.Results) != 3 {
		t.Errorf("results = %d, want 3 checks", len(report.Results))
	}
}

func TestCLIInspect(t *testing.T) {
	dir := t.TempDir()
	path := writeDocx(t, dir, "doc.docx",
		`<w:p><w:r><w:t>one</w:t></w:r></w:p><w:p><w:r><w:t>two</w:t></w:r></w:p>`)

	stdout, _, exitCode := runLancet(t, "", "inspect", path)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	var m struct {
		Sections []json.RawMessage `json:"sections"`
		Metadata struct {
			TotalParagraphs int `json:"total_paragraphs"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(stdout), &m); err != nil {
		t.Fatalf("inspect output is not JSON: %v\n%s", err, stdout)
	}
	if len(m.Sections) != 1 {
		t.Errorf("sections = %d, want 1", len(m.Sections))
	}
	if m.Metadata.TotalParagraphs != 2 {
		t.Errorf("total_paragraphs = %d, want 2", m.Metadata.TotalParagraphs)
	}
}

// TestCLIRunScript drives the script mode through a full edit cycle and
// then checks the saved package on disk.
func TestCLIRunScript(t *testing.T) {
	dir := t.TempDir()
	in := writeDocx(t, dir, "in.docx", `<w:p><w:r><w:t>stale text</w:t></w:r></w:p>`)
	out := dir + "/out.docx"
	script := writeScript(t, dir,
		"# edit cycle",
		"load "+in,
		`replace p0_r0 "fresh text"`,
		"save "+out,
	)

	stdout, _, exitCode := runLancet(t, "", "--no-history", "run", script)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0\n%s", exitCode, stdout)
	}
	for _, want := range []string{
		"> load " + in,
		"Loaded " + in,
		"Updated Run p0_r0. Formatting preserved.",
		"Saved to " + out,
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q\n%s", want, stdout)
		}
	}

	pkg, err := docx.Open(out)
	if err != nil {
		t.Fatalf("open saved package: %v", err)
	}
	if !strings.Contains(string(pkg.Document()), "<w:t>fresh text</w:t>") {
		t.Error("saved document does not carry the replacement")
	}
}

// TestCLIRunScriptJournal checks that --journal captures the whole run,
// compressed when the path says so.
func TestCLIRunScriptJournal(t *testing.T) {
	dir := t.TempDir()
	in := writeDocx(t, dir, "in.docx", `<w:p><w:r><w:t>x</w:t></w:r></w:p>`)
	journalPath := dir + "/session.jsonl.xz"
	script := writeScript(t, dir,
		"load "+in,
		`replace p0_r0 "y"`,
		"save "+dir+"/out.docx",
	)

	_, _, exitCode := runLancet(t, "", "--no-history", "--journal", journalPath, "run", script)
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}

	j, err := journal.Load(journalPath)
	if err != nil {
		t.Fatalf("load journal: %v", err)
	}
	var types []string
	for _, ev := range j.Events {
		types = append(types, ev.Type)
	}
	want := []string{journal.EventLoaded, journal.EventReplace, journal.EventSaved}
	if len(types) != len(want) {
		t.Fatalf("journal events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
	if j.HasErrors() {
		t.Error("journal records errors for a clean run")
	}
}

// TestCLIEditOverStdin feeds the interactive shell from a pipe.
func TestCLIEditOverStdin(t *testing.T) {
	dir := t.TempDir()
	in := writeDocx(t, dir, "in.docx", `<w:p><w:r><w:t>hello</w:t></w:r></w:p>`)

	stdin := strings.Join([]string{
		"load " + in,
		"map",
		"exit",
	}, "\n") + "\n"

	stdout, _, exitCode := runLancet(t, stdin, "--no-history", "edit")

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0\n%s", exitCode, stdout)
	}
	for _, want := range []string{
		"--- Lancet Precision Document Editor ---",
		"Loaded " + in,
		"total_paragraphs=1",
		`"total_paragraphs": 1`,
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q\n%s", want, stdout)
		}
	}
}

// TestCLIEditPreload passes the document as an argument instead of a
// load command.
func TestCLIEditPreload(t *testing.T) {
	dir := t.TempDir()
	in := writeDocx(t, dir, "in.docx", `<w:p><w:r><w:t>hello</w:t></w:r></w:p>`)

	stdout, _, exitCode := runLancet(t, "exit\n", "--no-history", "edit", in)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0\n%s", exitCode, stdout)
	}
	if !strings.Contains(stdout, "Loaded "+in) {
		t.Errorf("stdout missing preload stats line\n%s", stdout)
	}
}

func TestCLIUnknownCommandInScript(t *testing.T) {
	dir := t.TempDir()
	in := writeDocx(t, dir, "in.docx", `<w:p><w:r><w:t>x</w:t></w:r></w:p>`)
	script := writeScript(t, dir,
		"load "+in,
		"frobnicate p0",
		`replace p0_r0 "still works"`,
	)

	stdout, _, exitCode := runLancet(t, "", "--no-history", "run", script)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0 (session survives bad commands)", exitCode)
	}
	if !strings.Contains(stdout, "Unknown command.") {
		t.Errorf("stdout missing unknown-command notice\n%s", stdout)
	}
	if !strings.Contains(stdout, "Updated Run p0_r0. Formatting preserved.") {
		t.Errorf("session did not continue past the bad command\n%s", stdout)
	}
}
