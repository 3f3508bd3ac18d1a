// Package validate checks document packages for integrity without opening
// an editing session. A package passes when it is a readable zip container,
// its main document part is well-formed XML, and the markup has the
// structural spine an editor needs.
package validate

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"os"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/lancetdoc/lancet/core/docx"
	lanceterrors "github.com/lancetdoc/lancet/core/errors"
)

// Status values for reports.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Check types, in the order they run. A failing check stops the chain.
const (
	CheckContainer = "CONTAINER"
	CheckMarkup    = "MARKUP"
	CheckStructure = "STRUCTURE"
)

// Structural queries run against the document part. Names are matched by
// local name so prefixed and default-namespace markup validate the same way.
var (
	queryRoots         = xpath.MustCompile("/*")
	queryBody          = xpath.MustCompile("/*[local-name()='document']/*[local-name()='body']")
	queryOrphanedRuns  = xpath.MustCompile("//*[local-name()='r' and not(ancestor::*[local-name()='p'])]")
	queryNestedBodies  = xpath.MustCompile("//*[local-name()='body']/descendant::*[local-name()='body']")
	queryRootDocuments = xpath.MustCompile("/*[local-name()='document']")
)

// CheckResult is the outcome of a single validation stage.
type CheckResult struct {
	CheckType string `json:"check_type"`
	Pass      bool   `json:"pass"`
	Detail    string `json:"detail,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Report is the outcome of validating one package.
type Report struct {
	Path    string        `json:"path"`
	Status  string        `json:"status"`
	Results []CheckResult `json:"results"`
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return r.Status == StatusPass
}

// FailedCheck returns the check type of the first failure, or "".
func (r *Report) FailedCheck() string {
	for _, result := range r.Results {
		if !result.Pass {
			return result.CheckType
		}
	}
	return ""
}

// ToJSON serializes the report to JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Summary renders the one-line verdict shown to users.
func (r *Report) Summary() string {
	switch r.FailedCheck() {
	case CheckContainer:
		return "FAIL: File is not a valid zip container."
	case CheckMarkup, CheckStructure:
		return "FAIL: Internal XML is corrupt/malformed."
	default:
		return "PASS: Document structure and XML are valid."
	}
}

// Err returns the typed error for the first failing check, or nil.
func (r *Report) Err() error {
	for _, result := range r.Results {
		if result.Pass {
			continue
		}
		if result.CheckType == CheckContainer {
			return lanceterrors.NewPackage(r.Path, result.Detail)
		}
		return lanceterrors.NewMarkup(docx.DocumentPart, result.Line, result.Detail)
	}
	return nil
}

// File validates the package at path. Unreadable files fail the container
// check rather than returning an error; validation always yields a report.
func File(path string) *Report {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Report{
			Path:   path,
			Status: StatusFail,
			Results: []CheckResult{{
				CheckType: CheckContainer,
				Detail:    "cannot read file: " + err.Error(),
			}},
		}
	}
	return Bytes(data, path)
}

// Bytes validates an in-memory package image.
func Bytes(data []byte, path string) *Report {
	report := &Report{Path: path, Status: StatusPass}

	document, result := checkContainer(data, path)
	report.Results = append(report.Results, result)
	if !result.Pass {
		report.Status = StatusFail
		return report
	}

	result = checkMarkup(document)
	report.Results = append(report.Results, result)
	if !result.Pass {
		report.Status = StatusFail
		return report
	}

	result = checkStructure(document)
	report.Results = append(report.Results, result)
	if !result.Pass {
		report.Status = StatusFail
	}
	return report
}

// checkContainer verifies the zip container and extracts the document part.
func checkContainer(data []byte, path string) ([]byte, CheckResult) {
	pkg, err := docx.OpenBytes(data, path)
	if err != nil {
		detail := err.Error()
		var pkgErr *lanceterrors.PackageError
		if errors.As(err, &pkgErr) {
			detail = pkgErr.Reason
		}
		return nil, CheckResult{CheckType: CheckContainer, Detail: detail}
	}
	return pkg.Document(), CheckResult{CheckType: CheckContainer, Pass: true}
}

// checkMarkup runs a strict well-formedness pass over the document part.
// Undefined entities, mismatched tags, and truncated markup all fail here.
func checkMarkup(document []byte) CheckResult {
	dec := xml.NewDecoder(bytes.NewReader(document))
	// No custom entities: anything beyond the five predefined ones is
	// rejected, which also rules out XXE-style expansion tricks.
	dec.Entity = map[string]string{}
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return CheckResult{CheckType: CheckMarkup, Pass: true}
		}
		if err != nil {
			result := CheckResult{CheckType: CheckMarkup, Detail: err.Error()}
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				result.Line = syntaxErr.Line
				result.Detail = syntaxErr.Msg
			}
			return result
		}
	}
}

// checkStructure verifies the markup spine: a single document root holding a
// single body, with every run inside a paragraph.
func checkStructure(document []byte) CheckResult {
	doc, err := xmlquery.Parse(bytes.NewReader(document))
	if err != nil {
		return CheckResult{CheckType: CheckStructure, Detail: err.Error()}
	}

	if n := len(xmlquery.QuerySelectorAll(doc, queryRoots)); n != 1 {
		return CheckResult{
			CheckType: CheckStructure,
			Detail:    "expected a single root element",
		}
	}
	if len(xmlquery.QuerySelectorAll(doc, queryRootDocuments)) != 1 {
		return CheckResult{
			CheckType: CheckStructure,
			Detail:    "root element is not a document",
		}
	}
	if n := len(xmlquery.QuerySelectorAll(doc, queryBody)); n != 1 {
		return CheckResult{
			CheckType: CheckStructure,
			Detail:    "document must hold exactly one body",
		}
	}
	if len(xmlquery.QuerySelectorAll(doc, queryNestedBodies)) > 0 {
		return CheckResult{
			CheckType: CheckStructure,
			Detail:    "nested body elements",
		}
	}
	if n := len(xmlquery.QuerySelectorAll(doc, queryOrphanedRuns)); n > 0 {
		return CheckResult{
			CheckType: CheckStructure,
			Detail:    "runs outside any paragraph",
		}
	}
	return CheckResult{CheckType: CheckStructure, Pass: true}
}
