package engine

import (
	"encoding/json"
	"strconv"
	"strings"

	lanceterrors "github.com/lancetdoc/lancet/core/errors"
)

// DocMap is the structural map of a loaded document: one section holding a
// heading outline, content paragraphs with their addressable runs, table
// placeholders, and totals. Content before the first heading hangs under a
// synthetic level-0 "Root" heading.
type DocMap struct {
	Sections []SectionInfo `json:"sections"`
	Tables   []TableInfo   `json:"tables"`
	Metadata Metadata      `json:"metadata"`
}

// SectionInfo groups the heading outline.
type SectionInfo struct {
	ID       string        `json:"id"`
	Headings []HeadingInfo `json:"headings"`
}

// HeadingInfo is a heading paragraph and the content that follows it.
type HeadingInfo struct {
	ID         string          `json:"id"`
	Level      int             `json:"level"`
	Text       string          `json:"text"`
	Paragraphs []ParagraphInfo `json:"paragraphs"`
}

// ParagraphInfo is a content paragraph. Long text is truncated for display;
// run entries always carry the full text.
type ParagraphInfo struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Runs []RunInfo `json:"runs"`
}

// RunInfo is one addressable run. Bold and italic are tri-state: null means
// the property is not set directly on the run.
type RunInfo struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Bold   *bool  `json:"bold"`
	Italic *bool  `json:"italic"`
}

// TableInfo is an opaque table placeholder.
type TableInfo struct {
	ID   string `json:"id"`
	Rows int    `json:"rows"`
}

// Metadata carries document totals.
type Metadata struct {
	TotalParagraphs int `json:"total_paragraphs"`
	TotalTables     int `json:"total_tables"`
}

// Map builds the structural map from the current tree. Identifiers reflect
// the tree as it stands now, including any renumbering from earlier edits.
func (s *Session) Map() (*DocMap, error) {
	if err := s.requireLoaded("map"); err != nil {
		return nil, err
	}

	m := &DocMap{
		Sections: []SectionInfo{{
			ID: "s1",
			Headings: []HeadingInfo{{
				ID:         "h_root",
				Level:      0,
				Text:       "Root",
				Paragraphs: []ParagraphInfo{},
			}},
		}},
		Tables: []TableInfo{},
	}
	section := &m.Sections[0]
	current := 0

	paragraphs := s.doc.Paragraphs()
	for _, p := range paragraphs {
		if strings.HasPrefix(p.Style, "Heading") {
			section.Headings = append(section.Headings, HeadingInfo{
				ID:         p.ID,
				Level:      headingLevel(p.Style),
				Text:       p.Text(),
				Paragraphs: []ParagraphInfo{},
			})
			current = len(section.Headings) - 1
			continue
		}

		info := ParagraphInfo{
			ID:   p.ID,
			Text: truncateText(p.Text()),
			Runs: []RunInfo{},
		}
		for _, run := range p.Runs() {
			ri := RunInfo{ID: run.ID, Text: run.Text()}
			if run.Props != nil {
				ri.Bold = run.Props.Bold
				ri.Italic = run.Props.Italic
			}
			info.Runs = append(info.Runs, ri)
		}
		section.Headings[current].Paragraphs = append(section.Headings[current].Paragraphs, info)
	}

	tables := s.doc.Tables()
	for _, t := range tables {
		m.Tables = append(m.Tables, TableInfo{ID: t.ID, Rows: t.Rows})
	}

	m.Metadata = Metadata{
		TotalParagraphs: len(paragraphs),
		TotalTables:     len(tables),
	}
	return m, nil
}

// MapJSON renders the structural map as indented JSON.
func (s *Session) MapJSON() (string, error) {
	m, err := s.Map()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", s.fail("map", &lanceterrors.SerializeError{
			Message: "cannot render document map",
			Err:     err,
		})
	}
	return string(data), nil
}

// headingLevel extracts the outline level from a heading style name or
// style id ("Heading 2" and "Heading2" both give 2). Styles without a
// parsable level count as level 1.
func headingLevel(style string) int {
	rest := strings.TrimSpace(strings.TrimPrefix(style, "Heading"))
	if level, err := strconv.Atoi(rest); err == nil {
		return level
	}
	return 1
}

// truncateText shortens display text to 50 characters.
func truncateText(text string) string {
	runes := []rune(text)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return text
}
