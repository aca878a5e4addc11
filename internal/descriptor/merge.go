package descriptor

import (
	"github.com/beevik/etree"
	"github.com/nexdatas/nxstools/internal/xmldoc"
)

// Merge joins component documents into one definition. Groups with the same
// type and name are merged recursively, other nodes are appended in order.
func Merge(components []string) (string, error) {
	doc, root := xmldoc.New()

	for _, text := range components {
		cp, err := xmldoc.Parse(text)
		if err != nil {
			return "", err
		}

		for _, child := range cp.Root().ChildElements() {
			mergeElement(root, child.Copy())
		}
	}

	return xmldoc.String(doc)
}

func mergeElement(parent, e *etree.Element) {
	if e.Tag == "group" {
		for _, existing := range parent.SelectElements("group") {
			if sameGroup(existing, e) {
				for _, child := range e.ChildElements() {
					mergeElement(existing, child)
				}

				return
			}
		}
	}

	parent.AddChild(e)
}

func sameGroup(a, b *etree.Element) bool {
	return a.SelectAttrValue("type", "") == b.SelectAttrValue("type", "") &&
		a.SelectAttrValue("name", "") == b.SelectAttrValue("name", "")
}
