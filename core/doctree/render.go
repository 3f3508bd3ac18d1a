package doctree

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/lancetdoc/lancet/core/encoding"
)

// Render serializes the document back to main-part bytes. Modeled nodes are
// written compactly; raw fragments are emitted verbatim in their positions,
// so an unedited document serializes equivalently to its source.
func Render(d *Document) []byte {
	var buf bytes.Buffer
	buf.WriteString(d.Decl)
	buf.WriteString("\n")
	buf.WriteString(d.RootOpen)
	for _, raw := range d.PreBody {
		buf.WriteString(raw)
	}
	buf.WriteString(d.BodyOpen)
	for _, item := range d.Body {
		renderBodyItem(&buf, d.Prefix, item)
	}
	buf.WriteString(d.BodyClose)
	for _, raw := range d.PostBody {
		buf.WriteString(raw)
	}
	buf.WriteString(d.RootClose)
	return buf.Bytes()
}

func renderBodyItem(buf *bytes.Buffer, prefix string, item BodyItem) {
	switch b := item.(type) {
	case *Paragraph:
		renderParagraph(buf, prefix, b)
	case *Table:
		buf.WriteString(b.Raw)
	case *RawFragment:
		buf.WriteString(b.Raw)
	}
}

func renderParagraph(buf *bytes.Buffer, prefix string, p *Paragraph) {
	buf.WriteString("<")
	buf.WriteString(qname(prefix, "p"))
	buf.WriteString(p.RawAttrs)
	if p.Props == "" && len(p.Items) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteString(">")
	buf.WriteString(p.Props)
	for _, item := range p.Items {
		switch c := item.(type) {
		case *Run:
			renderRun(buf, prefix, c)
		case *RawFragment:
			buf.WriteString(c.Raw)
		}
	}
	buf.WriteString("</")
	buf.WriteString(qname(prefix, "p"))
	buf.WriteString(">")
}

func renderRun(buf *bytes.Buffer, prefix string, r *Run) {
	buf.WriteString("<")
	buf.WriteString(qname(prefix, "r"))
	buf.WriteString(r.RawAttrs)
	if r.Props.IsZero() && len(r.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteString(">")
	renderRunProps(buf, prefix, r.Props)
	for _, child := range r.Children {
		switch c := child.(type) {
		case *RunText:
			renderRunText(buf, prefix, c)
		case *RawFragment:
			buf.WriteString(c.Raw)
		}
	}
	buf.WriteString("</")
	buf.WriteString(qname(prefix, "r"))
	buf.WriteString(">")
}

func renderRunText(buf *bytes.Buffer, prefix string, t *RunText) {
	name := qname(prefix, "t")
	if t.Text == "" {
		buf.WriteString("<")
		buf.WriteString(name)
		buf.WriteString("/>")
		return
	}
	buf.WriteString("<")
	buf.WriteString(name)
	if t.Text != strings.TrimSpace(t.Text) {
		buf.WriteString(` xml:space="preserve"`)
	}
	buf.WriteString(">")
	buf.WriteString(encoding.EscapeXMLText(t.Text))
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteString(">")
}

func renderRunProps(buf *bytes.Buffer, prefix string, props *RunProps) {
	if props.IsZero() {
		return
	}
	if props.Raw != "" {
		buf.WriteString(props.Raw)
		return
	}
	buf.WriteString("<")
	buf.WriteString(qname(prefix, "rPr"))
	buf.WriteString(">")

	if props.RawFonts != "" {
		buf.WriteString(props.RawFonts)
	} else if props.Font != "" {
		font := encoding.EscapeXMLAttr(props.Font)
		buf.WriteString("<")
		buf.WriteString(qname(prefix, "rFonts"))
		buf.WriteString(" ")
		buf.WriteString(qname(prefix, "ascii"))
		buf.WriteString(`="` + font + `" `)
		buf.WriteString(qname(prefix, "hAnsi"))
		buf.WriteString(`="` + font + `"/>`)
	}
	if props.Bold != nil {
		renderToggle(buf, prefix, "b", *props.Bold)
	}
	if props.Italic != nil {
		renderToggle(buf, prefix, "i", *props.Italic)
	}
	if props.SizeHalf > 0 {
		renderValElement(buf, prefix, "sz", strconv.Itoa(props.SizeHalf))
	}
	if props.SizeCsHalf > 0 {
		renderValElement(buf, prefix, "szCs", strconv.Itoa(props.SizeCsHalf))
	}
	if props.Underline != "" {
		renderValElement(buf, prefix, "u", props.Underline)
	}
	for _, raw := range props.Extra {
		buf.WriteString(raw)
	}

	buf.WriteString("</")
	buf.WriteString(qname(prefix, "rPr"))
	buf.WriteString(">")
}

// renderToggle writes an on/off property: bare element for on, val="0" for off.
func renderToggle(buf *bytes.Buffer, prefix, local string, on bool) {
	buf.WriteString("<")
	buf.WriteString(qname(prefix, local))
	if !on {
		buf.WriteString(" ")
		buf.WriteString(qname(prefix, "val"))
		buf.WriteString(`="0"`)
	}
	buf.WriteString("/>")
}

func renderValElement(buf *bytes.Buffer, prefix, local, val string) {
	buf.WriteString("<")
	buf.WriteString(qname(prefix, local))
	buf.WriteString(" ")
	buf.WriteString(qname(prefix, "val"))
	buf.WriteString(`="`)
	buf.WriteString(encoding.EscapeXMLAttr(val))
	buf.WriteString(`"/>`)
}

// qname qualifies a WordprocessingML name with the document's prefix.
// Unprefixed documents get unprefixed names.
func qname(prefix, local string) string {
	if prefix != "" {
		return prefix + ":" + local
	}
	return local
}
