// Package journal records an editing session as a JSONL transcript, one
// event per line. Transcripts written with an .xz suffix are compressed
// transparently and read back the same way.
package journal

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	lanceterrors "github.com/lancetdoc/lancet/core/errors"
	"github.com/lancetdoc/lancet/internal/validation"
)

// Event represents a single entry in a session transcript.
type Event struct {
	Type       string `json:"t"`
	Seq        int    `json:"seq"`
	Session    string `json:"session,omitempty"`
	Path       string `json:"path,omitempty"`
	Target     string `json:"target,omitempty"`
	Text       string `json:"text,omitempty"`
	Attrs      string `json:"attrs,omitempty"`
	BLAKE3     string `json:"blake3,omitempty"`
	Paragraphs int    `json:"paragraphs,omitempty"`
	Runs       int    `json:"runs,omitempty"`
	Tables     int    `json:"tables,omitempty"`
	Result     string `json:"result,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Known event types
const (
	EventLoaded      = "LOADED"
	EventReplace     = "REPLACE"
	EventFormat      = "FORMAT"
	EventInsertAfter = "INSERT_AFTER"
	EventDelete      = "DELETE"
	EventSaved       = "SAVED"
	EventValidated   = "VALIDATED"
	EventError       = "ERROR"
)

// Writer appends events to a transcript as they happen. It stamps each
// event with the session identifier and a monotonic sequence number.
type Writer struct {
	out        io.Writer
	file       *os.File
	compressor io.Closer
	session    string
	seq        int
}

// Create opens a transcript file for writing. A path ending in .xz gets a
// compression layer; anything else is written as plain JSONL.
func Create(path, session string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, lanceterrors.Wrap(err, "failed to create transcript")
	}

	var out io.Writer = f
	var compressor io.Closer
	if strings.HasSuffix(path, ".xz") {
		xzw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, lanceterrors.Wrap(err, "failed to open xz stream")
		}
		out = xzw
		compressor = xzw
	}

	return &Writer{out: out, file: f, compressor: compressor, session: session}, nil
}

// NewWriter wraps an arbitrary writer, for transcripts that do not live on
// disk.
func NewWriter(w io.Writer, session string) *Writer {
	return &Writer{out: w, session: session}
}

// Append stamps and writes one event.
func (w *Writer) Append(event Event) error {
	w.seq++
	event.Seq = w.seq
	event.Session = w.session

	data, err := json.Marshal(event)
	if err != nil {
		return lanceterrors.Wrap(err, "failed to marshal event")
	}
	if _, err := w.out.Write(data); err != nil {
		return lanceterrors.Wrap(err, "failed to write event")
	}
	if _, err := io.WriteString(w.out, "\n"); err != nil {
		return lanceterrors.Wrap(err, "failed to write event")
	}
	return nil
}

// Close flushes the compression layer, if any, and closes the file.
func (w *Writer) Close() error {
	var errs []error
	if w.compressor != nil {
		if err := w.compressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Parse reads a transcript file and returns all events. Compressed
// transcripts are recognized by the .xz suffix or, for renamed files, by
// the xz stream magic.
func Parse(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, lanceterrors.Wrap(err, "failed to open transcript")
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(6)

	var r io.Reader = br
	if strings.HasSuffix(path, ".xz") || validation.IsXZData(head) {
		xzr, err := xz.NewReader(br)
		if err != nil {
			return nil, lanceterrors.Wrap(err, "failed to open xz stream")
		}
		r = xzr
	}

	return ParseReader(r)
}

// ParseReader reads JSONL events from r.
func ParseReader(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, lanceterrors.Wrapf(err, "failed to parse line %d", lineNum)
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return nil, lanceterrors.Wrap(err, "failed to read transcript")
	}
	return events, nil
}

// Journal is a parsed transcript with query helpers.
type Journal struct {
	Events []Event
	Path   string
}

// Load parses a transcript from a file.
func Load(path string) (*Journal, error) {
	events, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return &Journal{Events: events, Path: path}, nil
}

// ByType returns all events of the given type in order.
func (j *Journal) ByType(eventType string) []Event {
	var out []Event
	for _, event := range j.Events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// Mutations returns the tree-editing events in order.
func (j *Journal) Mutations() []Event {
	var out []Event
	for _, event := range j.Events {
		switch event.Type {
		case EventReplace, EventFormat, EventInsertAfter, EventDelete:
			out = append(out, event)
		}
	}
	return out
}

// LastSaved returns the most recent SAVED event, or nil.
func (j *Journal) LastSaved() *Event {
	for i := len(j.Events) - 1; i >= 0; i-- {
		if j.Events[i].Type == EventSaved {
			return &j.Events[i]
		}
	}
	return nil
}

// HasErrors reports whether the transcript contains any error events.
func (j *Journal) HasErrors() bool {
	for _, event := range j.Events {
		if event.Type == EventError {
			return true
		}
	}
	return false
}

// EventCount returns the total number of events.
func (j *Journal) EventCount() int {
	return len(j.Events)
}
