// Package doctree models the main document part of a WordprocessingML
// package as an addressable tree.
//
// The tree is deliberately narrow: paragraphs and runs are modeled as
// first-class nodes, tables are opaque leaves, and everything else the
// parser encounters (section properties, bookmarks, hyperlinks, unknown
// run content) is carried as raw markup fragments in document order.
// Rendering interleaves modeled nodes and fragments so unedited regions
// of the source serialize equivalently.
package doctree

// BodyItem is a direct child of the document body.
// The set of implementations is closed: *Paragraph, *Table, *RawFragment.
type BodyItem interface {
	bodyItem()
}

// InlineItem is a direct child of a paragraph.
// The set of implementations is closed: *Run, *RawFragment.
type InlineItem interface {
	inlineItem()
}

// RunChild is a piece of run content.
// The set of implementations is closed: *RunText, *RawFragment.
type RunChild interface {
	runChild()
}

// RawFragment holds markup that is preserved verbatim but never addressed.
type RawFragment struct {
	Raw string
}

func (*RawFragment) bodyItem()   {}
func (*RawFragment) inlineItem() {}
func (*RawFragment) runChild()   {}

// RunText is addressable run text, originally a w:t element.
type RunText struct {
	Text string
}

func (*RunText) runChild() {}

// RunProps models the run formatting we edit. Anything else found in the
// run properties is kept raw in Extra, in original order.
type RunProps struct {
	Bold       *bool  // w:b, nil when absent
	Italic     *bool  // w:i, nil when absent
	Underline  string // w:u val, empty when absent
	Font       string // typeface applied through editing, rendered as w:rFonts
	RawFonts   string // original w:rFonts markup, cleared when Font is set
	SizeHalf   int    // w:sz val in half-points, 0 when absent
	SizeCsHalf int    // w:szCs val in half-points, 0 when absent

	Extra []string // unmodeled property children, raw markup

	// Raw is the original w:rPr markup. While set, serialization emits it
	// verbatim so untouched runs keep their exact property order. Editing
	// a run clears it and the properties are regenerated from the fields.
	Raw string
}

// Invalidate drops the verbatim property markup after an edit so the
// modified fields take effect on the next serialization.
func (rp *RunProps) Invalidate() {
	rp.Raw = ""
}

// Clone returns a deep copy.
func (rp *RunProps) Clone() *RunProps {
	if rp == nil {
		return nil
	}
	out := &RunProps{
		Underline:  rp.Underline,
		Font:       rp.Font,
		RawFonts:   rp.RawFonts,
		SizeHalf:   rp.SizeHalf,
		SizeCsHalf: rp.SizeCsHalf,
		Raw:        rp.Raw,
	}
	if rp.Bold != nil {
		b := *rp.Bold
		out.Bold = &b
	}
	if rp.Italic != nil {
		i := *rp.Italic
		out.Italic = &i
	}
	if len(rp.Extra) > 0 {
		out.Extra = make([]string, len(rp.Extra))
		copy(out.Extra, rp.Extra)
	}
	return out
}

// IsZero reports whether no property is set.
func (rp *RunProps) IsZero() bool {
	if rp == nil {
		return true
	}
	return rp.Bold == nil && rp.Italic == nil && rp.Underline == "" &&
		rp.Font == "" && rp.RawFonts == "" && rp.SizeHalf == 0 &&
		rp.SizeCsHalf == 0 && len(rp.Extra) == 0 && rp.Raw == ""
}

// BoldOn reports whether bold is explicitly on.
func (rp *RunProps) BoldOn() bool {
	return rp != nil && rp.Bold != nil && *rp.Bold
}

// ItalicOn reports whether italic is explicitly on.
func (rp *RunProps) ItalicOn() bool {
	return rp != nil && rp.Italic != nil && *rp.Italic
}

// Run is an addressable text run, originally a w:r element.
type Run struct {
	ID string
	// RawAttrs preserves the source element's attributes (revision markers
	// and similar), pre-rendered with a leading space. Empty for new runs.
	RawAttrs string
	Props    *RunProps
	Children []RunChild
}

func (*Run) inlineItem() {}

// Text returns the concatenated addressable text of the run.
func (r *Run) Text() string {
	var out string
	for _, c := range r.Children {
		if t, ok := c.(*RunText); ok {
			out += t.Text
		}
	}
	return out
}

// SetText replaces the entire run content with a single text child.
// Non-text content the run carried (breaks, tabs, drawings) is dropped,
// matching the contract that replace rewrites the whole run.
func (r *Run) SetText(text string) {
	r.Children = []RunChild{&RunText{Text: text}}
}

// Paragraph is an addressable block of runs, originally a w:p element.
type Paragraph struct {
	ID string
	// RawAttrs preserves the source element's attributes, pre-rendered with
	// a leading space. Empty for new paragraphs.
	RawAttrs string
	Props    string // raw w:pPr markup, empty when absent
	Style    string // style identifier from w:pStyle, empty when absent
	Items    []InlineItem
}

func (*Paragraph) bodyItem() {}

// Runs returns the addressable runs in paragraph order.
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	for _, item := range p.Items {
		if r, ok := item.(*Run); ok {
			runs = append(runs, r)
		}
	}
	return runs
}

// Text returns the concatenated text of the paragraph's runs.
func (p *Paragraph) Text() string {
	var out string
	for _, item := range p.Items {
		if r, ok := item.(*Run); ok {
			out += r.Text()
		}
	}
	return out
}

// LastRun returns the final run of the paragraph, or nil when it has none.
func (p *Paragraph) LastRun() *Run {
	for i := len(p.Items) - 1; i >= 0; i-- {
		if r, ok := p.Items[i].(*Run); ok {
			return r
		}
	}
	return nil
}

// RemoveRun deletes the given run from the paragraph. The paragraph itself
// stays in place even when its last run goes.
func (p *Paragraph) RemoveRun(target *Run) bool {
	for i, item := range p.Items {
		if r, ok := item.(*Run); ok && r == target {
			p.Items = append(p.Items[:i], p.Items[i+1:]...)
			return true
		}
	}
	return false
}

// CloneShell returns a new empty paragraph carrying this paragraph's
// formatting (raw properties and style) but none of its content.
func (p *Paragraph) CloneShell() *Paragraph {
	return &Paragraph{
		Props: p.Props,
		Style: p.Style,
	}
}

// Table is an opaque block. Its markup is preserved verbatim; only the row
// count is surfaced for the document map.
type Table struct {
	ID   string
	Rows int
	Raw  string
}

func (*Table) bodyItem() {}

// Document is the parsed main document part.
type Document struct {
	// Decl is the XML declaration line reused on render.
	Decl string
	// RootOpen and RootClose carry the document root element tags with the
	// original namespace declarations. BodyOpen and BodyClose do the same
	// for the body element.
	RootOpen  string
	RootClose string
	BodyOpen  string
	BodyClose string
	// Prefix is the namespace prefix of the main WordprocessingML elements,
	// reused for every element the editor generates.
	Prefix string
	// PreBody and PostBody preserve markup sitting between the root tags
	// and the body element, typically indentation whitespace.
	PreBody  []string
	PostBody []string

	Body []BodyItem
}

// Paragraphs returns the addressable paragraphs in body order.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, item := range d.Body {
		if p, ok := item.(*Paragraph); ok {
			out = append(out, p)
		}
	}
	return out
}

// Tables returns the opaque tables in body order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, item := range d.Body {
		if t, ok := item.(*Table); ok {
			out = append(out, t)
		}
	}
	return out
}

// InsertAfter splices newPara into the body directly after target.
func (d *Document) InsertAfter(target, newPara *Paragraph) bool {
	for i, item := range d.Body {
		if p, ok := item.(*Paragraph); ok && p == target {
			items := make([]BodyItem, 0, len(d.Body)+1)
			items = append(items, d.Body[:i+1]...)
			items = append(items, newPara)
			items = append(items, d.Body[i+1:]...)
			d.Body = items
			return true
		}
	}
	return false
}

// Remove deletes the given paragraph from the body.
func (d *Document) Remove(target *Paragraph) bool {
	for i, item := range d.Body {
		if p, ok := item.(*Paragraph); ok && p == target {
			d.Body = append(d.Body[:i], d.Body[i+1:]...)
			return true
		}
	}
	return false
}

// Stats returns the counts of addressable paragraphs, runs, and tables.
func (d *Document) Stats() (paragraphs, runs, tables int) {
	for _, item := range d.Body {
		switch b := item.(type) {
		case *Paragraph:
			paragraphs++
			runs += len(b.Runs())
		case *Table:
			tables++
		}
	}
	return paragraphs, runs, tables
}
