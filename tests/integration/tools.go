// Package integration exercises the lancet binary end to end: it builds
// the binary once, runs it against fixture packages, and checks both the
// printed output and what lands on disk.
package integration

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// lancetBin is the built binary path, set by TestMain. Empty means the
// build failed and binary tests skip.
var lancetBin string

// lancetBinary returns the built binary or skips the test.
func lancetBinary(t *testing.T) string {
	t.Helper()
	if lancetBin == "" {
		t.Skip("lancet binary unavailable (go build failed)")
	}
	return lancetBin
}

// runLancet runs the binary with stdin and arguments, returning stdout,
// stderr, and the exit code.
func runLancet(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()

	cmd := exec.Command(lancetBinary(t), args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run lancet: %v", err)
		}
	}
	return stdout.String(), stderr.String(), exitCode
}

// buildDocx assembles a minimal package with the given document body.
func buildDocx(t *testing.T, body string) []byte {
	t.Helper()

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="` + wordNS + `"><w:body>` + body + `</w:body></w:document>`
	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="xml" ContentType="application/xml"/></Types>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": contentTypes,
		"word/document.xml":   document,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// writeDocx writes a fixture package into dir and returns its path.
func writeDocx(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buildDocx(t, body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// writeScript writes a command script into dir and returns its path.
func writeScript(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "lancet-bin-")
	if err == nil {
		bin := filepath.Join(dir, "lancet")
		build := exec.Command("go", "build", "-o", bin, "../../cmd/lancet")
		if out, berr := build.CombinedOutput(); berr == nil {
			lancetBin = bin
		} else {
			fmt.Fprintf(os.Stderr, "integration: go build failed: %v\n%s", berr, out)
		}
	}

	code := m.Run()

	if dir != "" {
		os.RemoveAll(dir)
	}
	os.Exit(code)
}
