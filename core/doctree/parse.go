package doctree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/lancetdoc/lancet/core/encoding"
	lanceterrors "github.com/lancetdoc/lancet/core/errors"
)

const documentPart = "word/document.xml"

// defaultDecl is used when the source part carries no XML declaration.
const defaultDecl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

// Parse builds a Document from the raw bytes of the main document part.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		line := 0
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			line = syntaxErr.Line
		}
		return nil, &lanceterrors.MarkupError{Part: documentPart, Line: line, Message: err.Error(), Err: err}
	}

	doc := &Document{Decl: defaultDecl}

	var docElem *xmlquery.Node
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.DeclarationNode:
			if child.Data == "xml" {
				doc.Decl = renderDecl(child)
			}
		case xmlquery.ElementNode:
			if docElem == nil {
				docElem = child
			}
		}
	}
	if docElem == nil {
		return nil, lanceterrors.NewMarkup(documentPart, 0, "no root element")
	}
	if docElem.Data != "document" {
		return nil, lanceterrors.NewMarkup(documentPart, 0, "unexpected root element "+elementName(docElem))
	}

	doc.Prefix = docElem.Prefix
	doc.RootOpen = renderOpenTag(docElem)
	doc.RootClose = renderCloseTag(docElem)

	var bodyElem *xmlquery.Node
	for child := docElem.FirstChild; child != nil; child = child.NextSibling {
		if bodyElem == nil && child.Type == xmlquery.ElementNode && child.Data == "body" {
			bodyElem = child
			continue
		}
		if raw := subtreeXML(child); raw != "" {
			if bodyElem == nil {
				doc.PreBody = append(doc.PreBody, raw)
			} else {
				doc.PostBody = append(doc.PostBody, raw)
			}
		}
	}
	if bodyElem == nil {
		return nil, lanceterrors.NewMarkup(documentPart, 0, "missing body element")
	}
	doc.BodyOpen = renderOpenTag(bodyElem)
	doc.BodyClose = renderCloseTag(bodyElem)

	for child := bodyElem.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			switch child.Data {
			case "p":
				doc.Body = append(doc.Body, parseParagraph(child))
			case "tbl":
				doc.Body = append(doc.Body, parseTable(child))
			default:
				doc.Body = append(doc.Body, &RawFragment{Raw: subtreeXML(child)})
			}
			continue
		}
		if raw := subtreeXML(child); raw != "" {
			doc.Body = append(doc.Body, &RawFragment{Raw: raw})
		}
	}

	return doc, nil
}

func parseParagraph(n *xmlquery.Node) *Paragraph {
	para := &Paragraph{RawAttrs: renderAttrs(n)}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			switch child.Data {
			case "pPr":
				para.Props = subtreeXML(child)
				para.Style = paragraphStyle(child)
			case "r":
				para.Items = append(para.Items, parseRun(child))
			default:
				para.Items = append(para.Items, &RawFragment{Raw: subtreeXML(child)})
			}
			continue
		}
		if raw := subtreeXML(child); raw != "" {
			para.Items = append(para.Items, &RawFragment{Raw: raw})
		}
	}
	return para
}

func parseRun(n *xmlquery.Node) *Run {
	run := &Run{RawAttrs: renderAttrs(n)}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			switch child.Data {
			case "rPr":
				run.Props = parseRunProps(child)
			case "t":
				run.Children = append(run.Children, &RunText{Text: child.InnerText()})
			default:
				run.Children = append(run.Children, &RawFragment{Raw: subtreeXML(child)})
			}
			continue
		}
		if raw := subtreeXML(child); raw != "" {
			run.Children = append(run.Children, &RawFragment{Raw: raw})
		}
	}
	return run
}

func parseRunProps(n *xmlquery.Node) *RunProps {
	props := &RunProps{Raw: subtreeXML(n)}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			// Whitespace between property elements is insignificant
			if raw := subtreeXML(child); strings.TrimSpace(raw) != "" {
				props.Extra = append(props.Extra, raw)
			}
			continue
		}
		switch child.Data {
		case "b":
			v := parseOnOff(attrValue(child, "val"))
			props.Bold = &v
		case "i":
			v := parseOnOff(attrValue(child, "val"))
			props.Italic = &v
		case "u":
			if val := attrValue(child, "val"); val != "" {
				props.Underline = val
			} else {
				props.Underline = "single"
			}
		case "rFonts":
			props.RawFonts = subtreeXML(child)
			props.Font = attrValue(child, "ascii")
		case "sz":
			if v, err := strconv.Atoi(attrValue(child, "val")); err == nil && v > 0 {
				props.SizeHalf = v
			} else {
				props.Extra = append(props.Extra, subtreeXML(child))
			}
		case "szCs":
			if v, err := strconv.Atoi(attrValue(child, "val")); err == nil && v > 0 {
				props.SizeCsHalf = v
			} else {
				props.Extra = append(props.Extra, subtreeXML(child))
			}
		default:
			props.Extra = append(props.Extra, subtreeXML(child))
		}
	}
	if props.IsZero() {
		return nil
	}
	return props
}

func parseTable(n *xmlquery.Node) *Table {
	rows := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == "tr" {
			rows++
		}
	}
	return &Table{Rows: rows, Raw: subtreeXML(n)}
}

// paragraphStyle extracts the style identifier from a pPr element.
func paragraphStyle(pPr *xmlquery.Node) string {
	for child := pPr.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == "pStyle" {
			return attrValue(child, "val")
		}
	}
	return ""
}

// attrValue returns the value of the attribute with the given local name,
// regardless of namespace prefix.
func attrValue(n *xmlquery.Node, local string) string {
	for _, attr := range n.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}

// parseOnOff interprets a WordprocessingML on/off attribute value. An
// absent value means on.
func parseOnOff(val string) bool {
	switch val {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}

// subtreeXML serializes a parsed node and its descendants back to markup.
// The rendering is done here rather than through the query library so
// escaping and whitespace of preserved fragments stay under our control.
func subtreeXML(n *xmlquery.Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.TextNode:
		sb.WriteString(encoding.EscapeXMLText(n.Data))
	case xmlquery.CharDataNode:
		sb.WriteString("<![CDATA[")
		sb.WriteString(n.Data)
		sb.WriteString("]]>")
	case xmlquery.CommentNode:
		sb.WriteString("<!--")
		sb.WriteString(n.Data)
		sb.WriteString("-->")
	case xmlquery.DeclarationNode:
		sb.WriteString(renderDecl(n))
	case xmlquery.ElementNode:
		name := elementName(n)
		sb.WriteString("<")
		sb.WriteString(name)
		sb.WriteString(renderAttrs(n))
		if n.FirstChild == nil {
			sb.WriteString("/>")
			return
		}
		sb.WriteString(">")
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			writeNode(sb, child)
		}
		sb.WriteString("</")
		sb.WriteString(name)
		sb.WriteString(">")
	}
}

// elementName returns the prefixed name of an element.
func elementName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

// renderDecl reconstructs an XML declaration or processing instruction
// from its parsed pseudo-attributes.
func renderDecl(n *xmlquery.Node) string {
	var sb strings.Builder
	sb.WriteString("<?")
	sb.WriteString(n.Data)
	for _, attr := range n.Attr {
		sb.WriteString(" ")
		sb.WriteString(attr.Name.Local)
		sb.WriteString(`="`)
		sb.WriteString(encoding.EscapeXMLAttr(attr.Value))
		sb.WriteString(`"`)
	}
	sb.WriteString("?>")
	return sb.String()
}

// renderAttrs reconstructs an element's attribute list in original order,
// each entry with a leading space.
func renderAttrs(n *xmlquery.Node) string {
	if len(n.Attr) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, attr := range n.Attr {
		sb.WriteString(" ")
		if attr.Name.Space != "" {
			sb.WriteString(attr.Name.Space)
			sb.WriteString(":")
		}
		sb.WriteString(attr.Name.Local)
		sb.WriteString(`="`)
		sb.WriteString(encoding.EscapeXMLAttr(attr.Value))
		sb.WriteString(`"`)
	}
	return sb.String()
}

// renderOpenTag reconstructs an element's opening tag with its attributes
// and namespace declarations in original order.
func renderOpenTag(n *xmlquery.Node) string {
	var sb strings.Builder
	sb.WriteString("<")
	if n.Prefix != "" {
		sb.WriteString(n.Prefix)
		sb.WriteString(":")
	}
	sb.WriteString(n.Data)
	sb.WriteString(renderAttrs(n))
	sb.WriteString(">")
	return sb.String()
}

func renderCloseTag(n *xmlquery.Node) string {
	var sb strings.Builder
	sb.WriteString("</")
	if n.Prefix != "" {
		sb.WriteString(n.Prefix)
		sb.WriteString(":")
	}
	sb.WriteString(n.Data)
	sb.WriteString(">")
	return sb.String()
}
