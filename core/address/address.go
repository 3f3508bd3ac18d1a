// Package address assigns and resolves the positional identifiers that make
// document nodes editable: p<i> for paragraphs, p<i>_r<j> for runs, t<i> for
// tables. Identifiers are derived from document order and carry no meaning
// across structural mutations; callers reassign after every insert or delete.
package address

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/lancetdoc/lancet/core/doctree"
	lanceterrors "github.com/lancetdoc/lancet/core/errors"
)

// Kind distinguishes the addressable node families.
type Kind int

const (
	KindParagraph Kind = iota
	KindRun
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindRun:
		return "run"
	case KindTable:
		return "table"
	default:
		return "paragraph"
	}
}

// ID is a parsed node identifier.
type ID struct {
	Kind  Kind
	Index int // paragraph or table position within its own numbering
	Run   int // run position within the paragraph, -1 unless Kind is KindRun
}

func (id ID) String() string {
	switch id.Kind {
	case KindRun:
		return "p" + strconv.Itoa(id.Index) + "_r" + strconv.Itoa(id.Run)
	case KindTable:
		return "t" + strconv.Itoa(id.Index)
	default:
		return "p" + strconv.Itoa(id.Index)
	}
}

// idGrammar is the participle grammar for node identifiers.
// Examples: "p0", "p12", "p3_r0", "t1"
//
//nolint:govet // participle grammar tags are not standard struct tags
type idGrammar struct {
	Kind  string `parser:"@Kind"`
	Index int    `parser:"@Int"`
	Run   *int   `parser:"( \"_r\" @Int )?"`
}

// idLexer defines the lexer for node identifiers.
var idLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Kind", Pattern: `[pt]`},
	{Name: "RunSep", Pattern: `_r`},
	{Name: "Int", Pattern: `[0-9]+`},
})

// idParser is the participle parser for node identifiers.
var idParser = participle.MustBuild[idGrammar](
	participle.Lexer(idLexer),
)

// Parse parses a node identifier string. Anything that does not match the
// identifier shape is reported as an unknown identifier, the same as an
// identifier that no longer resolves.
func Parse(s string) (ID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ID{}, lanceterrors.NewIdentifier(s)
	}

	parsed, err := idParser.ParseString("", trimmed)
	if err != nil {
		return ID{}, &lanceterrors.IdentifierError{ID: trimmed, Err: err}
	}

	id := ID{Index: parsed.Index, Run: -1}
	switch parsed.Kind {
	case "t":
		id.Kind = KindTable
		if parsed.Run != nil {
			return ID{}, lanceterrors.NewIdentifier(trimmed)
		}
	default:
		id.Kind = KindParagraph
		if parsed.Run != nil {
			id.Kind = KindRun
			id.Run = *parsed.Run
		}
	}
	return id, nil
}

// Target is a resolved identifier together with the node it names.
// Paragraph is set for both paragraph and run identifiers.
type Target struct {
	ID        ID
	Paragraph *doctree.Paragraph
	Run       *doctree.Run
	Table     *doctree.Table
}

// Assign walks the document and stamps every addressable node with its
// current identifier. Paragraphs and tables are numbered independently, so
// a table between two paragraphs does not shift paragraph numbering.
func Assign(d *doctree.Document) {
	paragraphs, tables := 0, 0
	for _, item := range d.Body {
		switch b := item.(type) {
		case *doctree.Paragraph:
			pid := ID{Kind: KindParagraph, Index: paragraphs, Run: -1}
			b.ID = pid.String()
			for j, run := range b.Runs() {
				run.ID = ID{Kind: KindRun, Index: paragraphs, Run: j}.String()
			}
			paragraphs++
		case *doctree.Table:
			b.ID = ID{Kind: KindTable, Index: tables, Run: -1}.String()
			tables++
		}
	}
}

// Resolve parses an identifier and locates its node in the document.
func Resolve(d *doctree.Document, s string) (*Target, error) {
	id, err := Parse(s)
	if err != nil {
		return nil, err
	}

	switch id.Kind {
	case KindTable:
		tables := d.Tables()
		if id.Index >= len(tables) {
			return nil, lanceterrors.NewIdentifier(id.String())
		}
		return &Target{ID: id, Table: tables[id.Index]}, nil

	default:
		paragraphs := d.Paragraphs()
		if id.Index >= len(paragraphs) {
			return nil, lanceterrors.NewIdentifier(id.String())
		}
		target := &Target{ID: id, Paragraph: paragraphs[id.Index]}
		if id.Kind == KindRun {
			runs := target.Paragraph.Runs()
			if id.Run >= len(runs) {
				return nil, lanceterrors.NewIdentifier(id.String())
			}
			target.Run = runs[id.Run]
		}
		return target, nil
	}
}
