// Package creator generates datasource and component documents and writes
// them into a store.
package creator

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/store"
	"github.com/nexdatas/nxstools/internal/templates"
	"github.com/nexdatas/nxstools/internal/xmldoc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Document is one generated datasource or component.
type Document struct {
	Kind model.DocumentKind
	Name string
	XML  string
	// Auxiliary documents only fill in references and are never stored over
	// an existing document of the same name.
	Auxiliary bool
}

// Generator builds documents and writes them into a repository.
type Generator interface {
	Documents(ctx context.Context) ([]*Document, error)
	Create(ctx context.Context, repo store.Repository) error
}

var emptyRefPattern = regexp.MustCompile(`\$datasources\.(?:[^\w\-]|$)`)

func dataSourceDocument(ds *descriptor.DataSource) (*Document, error) {
	xml, err := ds.XML()
	if err != nil {
		return nil, err
	}

	return &Document{Kind: model.KindDataSource, Name: ds.Name, XML: xml}, nil
}

func componentDocument(c *descriptor.Component) (*Document, error) {
	xml, err := c.XML()
	if err != nil {
		return nil, err
	}

	return &Document{Kind: model.KindComponent, Name: c.Name, XML: xml}, nil
}

func names(docs []*Document, kind model.DocumentKind, auxiliary bool) []string {
	out := []string{}

	for _, d := range docs {
		if d.Kind == kind && d.Auxiliary == auxiliary {
			out = append(out, d.Name)
		}
	}

	return out
}

// check fails on the first kind with a colliding document name.
func check(ctx context.Context, repo store.Repository, docs []*Document, overwrite bool, kinds ...model.DocumentKind) error {
	for _, kind := range kinds {
		if err := store.Check(ctx, repo, kind, names(docs, kind, false), overwrite); err != nil {
			return err
		}
	}

	return nil
}

// write stores datasources before components. Auxiliary datasources already
// present in the repository are skipped.
func write(ctx context.Context, repo store.Repository, docs []*Document, logger *logrus.Entry) error {
	present := map[string]bool{}

	if len(names(docs, model.KindDataSource, true)) > 0 {
		existing, err := repo.Existing(ctx, model.KindDataSource)
		if err != nil {
			return err
		}

		for _, n := range existing {
			present[n] = true
		}
	}

	for _, kind := range []model.DocumentKind{model.KindDataSource, model.KindComponent} {
		for _, d := range docs {
			if d.Kind != kind {
				continue
			}

			if d.Auxiliary && present[d.Name] {
				logger.WithField("datasource", d.Name).Debug("datasource exists, not replaced")
				continue
			}

			if err := repo.Store(ctx, d.Kind, d.Name, d.XML); err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{
				"kind":  string(d.Kind),
				"name":  d.Name,
				"store": repo.Name(),
			}).Info("document stored")
		}
	}

	return nil
}

// unresolved returns a CLIENT datasource for every reference of the
// components that no generated datasource defines.
func unresolved(docs []*Document) ([]*Document, error) {
	defined := map[string]bool{}
	for _, d := range docs {
		if d.Kind == model.KindDataSource {
			defined[d.Name] = true
		}
	}

	out := []*Document{}

	for _, d := range docs {
		if d.Kind != model.KindComponent {
			continue
		}

		for _, ref := range descriptor.DataSourceRefs(d.XML) {
			if defined[ref] {
				continue
			}

			defined[ref] = true

			doc, err := dataSourceDocument(descriptor.NewClientDataSource(ref, ref))
			if err != nil {
				return nil, err
			}

			doc.Auxiliary = true
			out = append(out, doc)
		}
	}

	return out, nil
}

// renderBundle substitutes vars in the template files. Component files are
// named after component, the following ones get the file base as a suffix.
func renderBundle(pkg *templates.Package, files []string, vars map[string]string, component string) ([]*Document, error) {
	docs := []*Document{}
	components := 0

	for _, f := range files {
		text, err := pkg.Render(f, vars)
		if err != nil {
			return nil, err
		}

		if templates.IsDataSource(f) {
			ds, err := descriptor.ParseDataSource(text)
			if err != nil {
				return nil, errors.Wrap(err, f)
			}

			if strings.TrimSpace(ds.Name) == "" {
				return nil, errors.Wrap(model.ErrWrongParameter, f+": datasource without name")
			}

			docs = append(docs, &Document{Kind: model.KindDataSource, Name: ds.Name, XML: text})

			continue
		}

		if _, err := xmldoc.Parse(text); err != nil {
			return nil, errors.Wrap(model.ErrWrongParameter, f+": "+err.Error())
		}

		name := component
		if components > 0 {
			base := strings.TrimSuffix(f[strings.LastIndex(f, "/")+1:], model.KindComponent.FileSuffix())
			name = component + "_" + base
		}

		components++

		docs = append(docs, &Document{Kind: model.KindComponent, Name: name, XML: text})
	}

	return docs, nil
}

// dropEmptyRefs removes the fields referencing a datasource with an empty name.
func dropEmptyRefs(text string) (string, error) {
	if !emptyRefPattern.MatchString(text) {
		return text, nil
	}

	doc, err := xmldoc.Parse(text)
	if err != nil {
		return "", err
	}

	for _, f := range doc.FindElements("//field") {
		if !emptyRefPattern.MatchString(ownText(f)) {
			continue
		}

		removeElement(f)
	}

	return xmldoc.Raw(doc)
}

func ownText(e *etree.Element) string {
	var sb strings.Builder

	for _, c := range e.Child {
		if cd, ok := c.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}

	return sb.String()
}

// removeElement detaches e together with the indentation in front of it.
func removeElement(e *etree.Element) {
	parent := e.Parent()
	i := e.Index()

	parent.RemoveChildAt(i)

	if i > 0 {
		if cd, ok := parent.Child[i-1].(*etree.CharData); ok && cd.IsWhitespace() {
			parent.RemoveChildAt(i - 1)
		}
	}
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}

	sort.Strings(out)

	return out
}
