// Package xmldoc reads and writes the XML documents exchanged with the
// configuration server and stored on disk.
package xmldoc

import (
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

const (
	// RootTag is the root element of datasource and component documents.
	RootTag = "definition"

	indentSpaces = 2
)

// New returns an empty document with an XML declaration and a definition root.
func New() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(RootTag)

	return doc, root
}

func readSettings() etree.ReadSettings {
	return etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
	}
}

// Read parses a document, the declared encoding may be any charset label.
func Read(r io.Reader) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = readSettings()

	if _, err := doc.ReadFrom(r); err != nil {
		return nil, errors.Wrap(model.ErrParse, err.Error())
	}

	if doc.Root() == nil {
		return nil, errors.Wrap(model.ErrParse, "document has no root element")
	}

	return doc, nil
}

// Parse is Read on a string.
func Parse(text string) (*etree.Document, error) {
	return Read(strings.NewReader(text))
}

// String renders an indented document.
func String(doc *etree.Document) (string, error) {
	doc.Indent(indentSpaces)

	return Raw(doc)
}

// Raw renders a document keeping its whitespace as is.
func Raw(doc *etree.Document) (string, error) {
	doc.WriteSettings.CanonicalEndTags = false

	text, err := doc.WriteToString()
	if err != nil {
		return "", errors.Wrap(err, "failed to render xml")
	}

	return text, nil
}

// Text returns the trimmed text content of the named child, or an empty string.
func Text(e *etree.Element, child string) string {
	c := e.SelectElement(child)
	if c == nil {
		return ""
	}

	return strings.TrimSpace(c.Text())
}

// Depth counts the element ancestors of e.
func Depth(e *etree.Element) int {
	depth := 0
	for p := e.Parent(); p != nil && p.Tag != ""; p = p.Parent() {
		depth++
	}

	return depth
}

// Append adds child as the last element of parent, indented to match a
// document written with two space indentation.
func Append(parent, child *etree.Element) {
	depth := Depth(parent)
	inner := Newline(depth + 1)
	outer := Newline(depth)

	// drop the trailing whitespace closing the parent
	if n := len(parent.Child); n > 0 {
		if cd, ok := parent.Child[n-1].(*etree.CharData); ok && cd.IsWhitespace() {
			parent.RemoveChildAt(n - 1)
		}
	}

	parent.CreateText(inner)
	parent.AddChild(child)
	indentElement(child, depth+1)
	parent.CreateText(outer)
}

// indentElement indents a freshly built element placed at depth.
func indentElement(e *etree.Element, depth int) {
	hasElements := false
	for _, c := range e.Child {
		if _, ok := c.(*etree.Element); ok {
			hasElements = true
			break
		}
	}

	if !hasElements {
		return
	}

	for i := len(e.Child) - 1; i >= 0; i-- {
		if cd, ok := e.Child[i].(*etree.CharData); ok && cd.IsWhitespace() {
			e.RemoveChildAt(i)
		}
	}

	for i := len(e.Child) - 1; i >= 0; i-- {
		if ce, ok := e.Child[i].(*etree.Element); ok {
			indentElement(ce, depth+1)
			e.InsertChildAt(i, etree.NewText(Newline(depth+1)))
		}
	}

	e.CreateText(Newline(depth))
}

// Newline starts a line indented for an element at depth.
func Newline(depth int) string {
	return "\n" + strings.Repeat(" ", indentSpaces*depth)
}
