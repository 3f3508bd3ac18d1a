// Package engine owns the document session: one loaded package, its parsed
// node tree, and the surgical commands that edit it.
//
// A session is single-threaded. Commands run to completion one at a time,
// and every command either fully applies or leaves the tree exactly as it
// was: target identifiers are resolved and arguments checked before the
// first mutation. Callers that share a session across goroutines (the
// serve mode does) must hold their own exclusive lock around commands.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lancetdoc/lancet/core/address"
	"github.com/lancetdoc/lancet/core/doctree"
	"github.com/lancetdoc/lancet/core/docx"
	lanceterrors "github.com/lancetdoc/lancet/core/errors"
	"github.com/lancetdoc/lancet/core/journal"
	"github.com/lancetdoc/lancet/core/validate"
	"github.com/lancetdoc/lancet/internal/history"
	"github.com/lancetdoc/lancet/internal/logging"
)

// Options configures optional session side channels. Both are nil-safe:
// a session without a journal or history store simply records nothing.
type Options struct {
	Journal *journal.Writer
	History *history.Store
}

// Session is a live editing session over one loaded document.
type Session struct {
	ID string

	opts      Options
	path      string
	pkg       *docx.Package
	doc       *doctree.Document
	mutations int
	dirty     bool
	events    []journal.Event
}

// NewSession creates an empty session. Load gives it a document.
func NewSession(opts Options) *Session {
	return &Session{
		ID:   uuid.NewString(),
		opts: opts,
	}
}

// AttachJournal directs session events to w from now on. The writer stamps
// events with the session ID, so it is created after the session and
// attached here.
func (s *Session) AttachJournal(w *journal.Writer) {
	s.opts.Journal = w
}

// LoadResult describes a freshly loaded document.
type LoadResult struct {
	Path       string
	Digest     string
	Paragraphs int
	Runs       int
	Tables     int
}

// Load parses the package at path and replaces the session's document.
// On failure the previously loaded document, if any, stays in place.
func (s *Session) Load(path string) (*LoadResult, error) {
	pkg, err := docx.Open(path)
	if err != nil {
		return nil, s.fail("load", err)
	}
	return s.adopt(pkg)
}

// LoadBytes parses an in-memory package image and replaces the session's
// document. The path is kept for reporting only.
func (s *Session) LoadBytes(data []byte, path string) (*LoadResult, error) {
	pkg, err := docx.OpenBytes(data, path)
	if err != nil {
		return nil, s.fail("load", err)
	}
	return s.adopt(pkg)
}

func (s *Session) adopt(pkg *docx.Package) (*LoadResult, error) {
	doc, err := doctree.Parse(pkg.Document())
	if err != nil {
		return nil, s.fail("load", err)
	}
	address.Assign(doc)

	s.pkg = pkg
	s.doc = doc
	s.path = pkg.Path
	s.mutations = 0
	s.dirty = false

	paragraphs, runs, tables := doc.Stats()
	digest := pkg.DocumentDigest()

	logging.DocumentLoaded(s.path, paragraphs, runs, tables, "session_id", s.ID)
	s.record(journal.Event{
		Type:       journal.EventLoaded,
		Path:       s.path,
		BLAKE3:     digest,
		Paragraphs: paragraphs,
		Runs:       runs,
		Tables:     tables,
	})
	if s.opts.History != nil {
		err := s.opts.History.RecordLoad(history.LoadRecord{
			SessionID:  s.ID,
			Path:       s.path,
			Digest:     digest,
			Paragraphs: paragraphs,
			Runs:       runs,
			Tables:     tables,
		})
		if err != nil {
			logging.Warn("history record failed", "error", err.Error(), "session_id", s.ID)
		}
	}

	return &LoadResult{
		Path:       s.path,
		Digest:     digest,
		Paragraphs: paragraphs,
		Runs:       runs,
		Tables:     tables,
	}, nil
}

// SaveResult describes a completed save.
type SaveResult struct {
	Path   string
	Digest string
}

// Save renders the current tree and writes a new package to path. All parts
// other than the document part are copied verbatim from the source package.
// An empty path saves back to the loaded path.
func (s *Session) Save(path string) (*SaveResult, error) {
	if err := s.requireLoaded("save"); err != nil {
		return nil, err
	}
	if path == "" {
		path = s.path
	}

	rendered := doctree.Render(s.doc)
	if err := s.pkg.Save(path, rendered); err != nil {
		return nil, s.fail("save", err)
	}

	digest := docx.Digest(rendered)
	s.dirty = false

	logging.DocumentSaved(path, digest, "session_id", s.ID, "mutations", s.mutations)
	s.record(journal.Event{
		Type:   journal.EventSaved,
		Path:   path,
		BLAKE3: digest,
	})
	if s.opts.History != nil {
		err := s.opts.History.RecordSave(history.SaveRecord{
			SessionID: s.ID,
			Path:      path,
			Digest:    digest,
			Mutations: s.mutations,
		})
		if err != nil {
			logging.Warn("history record failed", "error", err.Error(), "session_id", s.ID)
		}
	}

	return &SaveResult{Path: path, Digest: digest}, nil
}

// Validate checks the package at path without touching the session state.
// It works whether or not a document is loaded.
func (s *Session) Validate(path string) *validate.Report {
	report := validate.File(path)
	s.record(journal.Event{
		Type:   journal.EventValidated,
		Path:   path,
		Result: report.Status,
	})
	return report
}

// Loaded reports whether the session holds a document.
func (s *Session) Loaded() bool {
	return s.doc != nil
}

// Path returns the loaded document's path, or "".
func (s *Session) Path() string {
	return s.path
}

// Dirty reports whether the tree has unsaved mutations.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Mutations returns the number of commands applied since load.
func (s *Session) Mutations() int {
	return s.mutations
}

// Stats returns the current paragraph, run, and table counts.
func (s *Session) Stats() (paragraphs, runs, tables int) {
	if s.doc == nil {
		return 0, 0, 0
	}
	return s.doc.Stats()
}

// DocumentXML renders the current tree to document part markup. It returns
// nil when no document is loaded.
func (s *Session) DocumentXML() []byte {
	if s.doc == nil {
		return nil
	}
	return doctree.Render(s.doc)
}

// Events returns a copy of the session transcript: every journal event
// recorded since the session started, whether or not a writer is attached.
func (s *Session) Events() []journal.Event {
	return s.EventsSince(0)
}

// EventsSince returns a copy of the transcript after the first n events.
func (s *Session) EventsSince(n int) []journal.Event {
	if n < 0 {
		n = 0
	}
	if n >= len(s.events) {
		return nil
	}
	return append([]journal.Event(nil), s.events[n:]...)
}

// EventCount returns the number of events recorded so far.
func (s *Session) EventCount() int {
	return len(s.events)
}

// History returns the session's history store, or nil when disabled.
func (s *Session) History() *history.Store {
	return s.opts.History
}

// Close releases the session's journal. The history store is shared and is
// owned by the caller.
func (s *Session) Close() error {
	if s.opts.Journal != nil {
		return s.opts.Journal.Close()
	}
	return nil
}

func (s *Session) requireLoaded(command string) error {
	if s.doc != nil {
		return nil
	}
	return s.fail(command, lanceterrors.NewCommand(command, "no document loaded"))
}

// afterMutation renumbers identifiers and records a successful command.
// Reassignment runs on every mutation so positions and identifiers can
// never drift apart.
func (s *Session) afterMutation(command, target string, start time.Time, event journal.Event) {
	address.Assign(s.doc)
	s.mutations++
	s.dirty = true
	logging.CommandApplied(command, target, time.Since(start), "session_id", s.ID)
	s.record(event)
}

// record stamps the event and keeps it in the session transcript. When a
// journal writer is attached the event is appended there too; the writer
// stamps its own copy with the same sequence number.
func (s *Session) record(event journal.Event) {
	event.Seq = len(s.events) + 1
	event.Session = s.ID
	s.events = append(s.events, event)

	if s.opts.Journal == nil {
		return
	}
	if err := s.opts.Journal.Append(event); err != nil {
		logging.Warn("journal append failed", "error", err.Error(), "session_id", s.ID)
	}
}

// fail logs and journals a rejected command, then returns its error.
func (s *Session) fail(command string, err error) error {
	logging.CommandFailed(command, err, "session_id", s.ID)
	s.record(journal.Event{
		Type:    journal.EventError,
		Message: fmt.Sprintf("%s: %v", command, err),
	})
	return err
}
