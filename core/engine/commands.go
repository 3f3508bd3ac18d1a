package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lancetdoc/lancet/core/address"
	"github.com/lancetdoc/lancet/core/doctree"
	lanceterrors "github.com/lancetdoc/lancet/core/errors"
	"github.com/lancetdoc/lancet/core/journal"
)

// Replace overwrites the text of one run. The run's formatting descriptor
// is untouched, so bold stays bold and the original property markup is
// re-emitted verbatim on save.
func (s *Session) Replace(id, text string) error {
	if err := s.requireLoaded("replace"); err != nil {
		return err
	}
	start := time.Now()

	target, err := address.Resolve(s.doc, id)
	if err != nil {
		return s.fail("replace", err)
	}
	if target.ID.Kind != address.KindRun {
		return s.fail("replace", lanceterrors.NewCommand("replace",
			fmt.Sprintf("%s is a %s, only runs can be replaced", id, target.ID.Kind)))
	}

	target.Run.SetText(text)
	s.afterMutation("replace", id, start, journal.Event{
		Type:   journal.EventReplace,
		Target: id,
		Text:   text,
	})
	return nil
}

// Format merges formatting attributes into one run's descriptor.
// Attributes not named stay as they are.
func (s *Session) Format(id string, attrs *Attrs) error {
	if err := s.requireLoaded("format"); err != nil {
		return err
	}
	start := time.Now()

	if attrs == nil || attrs.isEmpty() {
		return s.fail("format", lanceterrors.NewCommand("format",
			"requires at least one attribute, e.g. bold=true"))
	}
	target, err := address.Resolve(s.doc, id)
	if err != nil {
		return s.fail("format", err)
	}
	if target.ID.Kind != address.KindRun {
		return s.fail("format", lanceterrors.NewCommand("format",
			fmt.Sprintf("%s is a %s, only runs can be formatted", id, target.ID.Kind)))
	}

	run := target.Run
	if run.Props == nil {
		run.Props = &doctree.RunProps{}
	}
	props := run.Props
	// The original property markup no longer matches the descriptor, so it
	// has to be regenerated from the modeled fields on save.
	props.Invalidate()

	if attrs.Bold != nil {
		b := *attrs.Bold
		props.Bold = &b
	}
	if attrs.Italic != nil {
		i := *attrs.Italic
		props.Italic = &i
	}
	if attrs.Underline != nil {
		props.Underline = *attrs.Underline
	}
	if attrs.Font != nil {
		props.Font = *attrs.Font
		props.RawFonts = ""
	}
	if attrs.SizePt != nil {
		props.SizeHalf = *attrs.SizePt * 2
	}

	s.afterMutation("format", id, start, journal.Event{
		Type:   journal.EventFormat,
		Target: id,
		Attrs:  attrs.String(),
	})
	return nil
}

// InsertAfter creates a new paragraph holding one run with the given text
// and splices it immediately after the target paragraph. The paragraph
// shell (style, paragraph properties) is copied from the target, and the
// run descriptor is copied from the target's last run, best effort. Every
// identifier from the new paragraph onward is renumbered.
func (s *Session) InsertAfter(id, text string) error {
	if err := s.requireLoaded("insert_after"); err != nil {
		return err
	}
	start := time.Now()

	target, err := address.Resolve(s.doc, id)
	if err != nil {
		return s.fail("insert_after", err)
	}
	if target.ID.Kind != address.KindParagraph {
		return s.fail("insert_after", lanceterrors.NewCommand("insert_after",
			fmt.Sprintf("%s is a %s, new paragraphs can only follow a paragraph", id, target.ID.Kind)))
	}

	newPara := target.Paragraph.CloneShell()
	run := &doctree.Run{}
	if last := target.Paragraph.LastRun(); last != nil && last.Props != nil {
		run.Props = last.Props.Clone()
	}
	run.SetText(text)
	newPara.Items = append(newPara.Items, run)

	if !s.doc.InsertAfter(target.Paragraph, newPara) {
		return s.fail("insert_after", lanceterrors.NewIdentifier(id))
	}

	s.afterMutation("insert_after", id, start, journal.Event{
		Type:   journal.EventInsertAfter,
		Target: id,
		Text:   text,
	})
	return nil
}

// Delete removes one run or one paragraph. Deleting a paragraph's last run
// leaves the paragraph in place, empty; removing it takes a second delete
// aimed at the paragraph identifier.
func (s *Session) Delete(id string) error {
	if err := s.requireLoaded("delete"); err != nil {
		return err
	}
	start := time.Now()

	target, err := address.Resolve(s.doc, id)
	if err != nil {
		return s.fail("delete", err)
	}

	switch target.ID.Kind {
	case address.KindRun:
		target.Paragraph.RemoveRun(target.Run)
	case address.KindParagraph:
		s.doc.Remove(target.Paragraph)
	default:
		return s.fail("delete", lanceterrors.NewCommand("delete",
			fmt.Sprintf("%s is a table, tables are opaque and cannot be deleted", id)))
	}

	s.afterMutation("delete", id, start, journal.Event{
		Type:   journal.EventDelete,
		Target: id,
	})
	return nil
}

// Attrs is a parsed set of formatting attributes. Nil fields were not
// named and must not be touched on the target run.
type Attrs struct {
	Bold      *bool
	Italic    *bool
	Underline *string
	Font      *string
	SizePt    *int
}

// ParseAttrs parses key=value attribute tokens. Recognized keys are bold,
// italic, underline, font, and size (integer points). Underline accepts
// booleans ("true" means single, "false" means none) as well as underline
// style names like "double".
func ParseAttrs(tokens []string) (*Attrs, error) {
	if len(tokens) == 0 {
		return nil, lanceterrors.NewCommand("format",
			"requires at least one attribute, e.g. bold=true")
	}

	attrs := &Attrs{}
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok || value == "" {
			return nil, lanceterrors.NewCommand("format",
				fmt.Sprintf("attribute %q is not key=value", token))
		}

		switch strings.ToLower(key) {
		case "bold":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, lanceterrors.NewCommand("format",
					fmt.Sprintf("bold must be true or false, got %q", value))
			}
			attrs.Bold = &b
		case "italic":
			i, err := strconv.ParseBool(value)
			if err != nil {
				return nil, lanceterrors.NewCommand("format",
					fmt.Sprintf("italic must be true or false, got %q", value))
			}
			attrs.Italic = &i
		case "underline":
			style := value
			if on, err := strconv.ParseBool(value); err == nil {
				style = "none"
				if on {
					style = "single"
				}
			}
			attrs.Underline = &style
		case "font":
			font := value
			attrs.Font = &font
		case "size":
			pt, err := strconv.Atoi(value)
			if err != nil {
				return nil, lanceterrors.NewCommand("format",
					fmt.Sprintf("size must be an integer point value, got %q", value))
			}
			if pt <= 0 {
				return nil, lanceterrors.NewCommand("format",
					fmt.Sprintf("size must be positive, got %d", pt))
			}
			attrs.SizePt = &pt
		default:
			return nil, lanceterrors.NewCommand("format",
				fmt.Sprintf("unknown attribute %q (bold, italic, underline, font, size)", key))
		}
	}
	return attrs, nil
}

func (a *Attrs) isEmpty() bool {
	return a.Bold == nil && a.Italic == nil && a.Underline == nil &&
		a.Font == nil && a.SizePt == nil
}

// String renders the attributes back to key=value tokens in a fixed order.
func (a *Attrs) String() string {
	var parts []string
	if a.Bold != nil {
		parts = append(parts, fmt.Sprintf("bold=%t", *a.Bold))
	}
	if a.Italic != nil {
		parts = append(parts, fmt.Sprintf("italic=%t", *a.Italic))
	}
	if a.Underline != nil {
		parts = append(parts, "underline="+*a.Underline)
	}
	if a.Font != nil {
		parts = append(parts, "font="+*a.Font)
	}
	if a.SizePt != nil {
		parts = append(parts, fmt.Sprintf("size=%d", *a.SizePt))
	}
	return strings.Join(parts, " ")
}
