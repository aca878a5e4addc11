package creator

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/naming"
	"github.com/nexdatas/nxstools/internal/store"
	"github.com/nexdatas/nxstools/internal/templates"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StdCompOptions configures component generation from a standard component type.
type StdCompOptions struct {
	Package   *templates.Package
	Type      string
	Component string
	// Variables are the template values given by the user.
	Variables map[string]string
	EntryName string
	InsName   string
	Mandatory bool
	NoLower   bool
	Overwrite bool
}

// StdComp generates a component from a standard component template.
type StdComp struct {
	opts   *StdCompOptions
	logger *logrus.Entry
}

func NewStdComp(opts *StdCompOptions, logger *logrus.Entry) *StdComp {
	return &StdComp{opts: opts, logger: logger.WithField("generator", "stdcomp")}
}

// ParseVariables reads "name value" argument pairs.
func ParseVariables(args []string) (map[string]string, error) {
	if len(args)%2 != 0 {
		return nil, errors.Wrap(model.ErrWrongParameter, "variables need name value pairs, got "+fmt.Sprint(args))
	}

	out := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		out[args[i]] = args[i+1]
	}

	return out, nil
}

// Types writes the standard component types with their description.
func (g *StdComp) Types(w io.Writer) error {
	if g.opts.Package == nil {
		return errors.Wrap(model.ErrMissingParameter, "template package is required")
	}

	fmt.Fprintln(w, "POSSIBLE COMPONENT TYPES:")

	for _, name := range g.opts.Package.ComponentTypes() {
		ct, err := g.opts.Package.ComponentType(name)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "  %s - %s\n", name, ct.Description)
	}

	return nil
}

// Variables writes the variables of the selected component type.
func (g *StdComp) Variables(w io.Writer) error {
	ct, err := g.componentType()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "COMPONENT VARIABLES of %s:\n", ct.Name)

	for _, v := range ct.SortedVariables() {
		fmt.Fprintf(w, "  %s - %s [default: '%s']\n", v.Name, v.Doc, v.Default)
	}

	return nil
}

func (g *StdComp) componentType() (*templates.ComponentType, error) {
	if g.opts.Package == nil {
		return nil, errors.Wrap(model.ErrMissingParameter, "template package is required")
	}

	if strings.TrimSpace(g.opts.Type) == "" {
		return nil, errors.Wrap(model.ErrMissingParameter, "component type is required")
	}

	return g.opts.Package.ComponentType(g.opts.Type)
}

func (g *StdComp) Documents(_ context.Context) ([]*Document, error) {
	ct, err := g.componentType()
	if err != nil {
		return nil, err
	}

	name := naming.Apply(strings.TrimSpace(g.opts.Component), !g.opts.NoLower)
	if name == "" {
		return nil, errors.Wrap(model.ErrMissingParameter, "component name is required")
	}

	for v := range g.opts.Variables {
		if _, ok := ct.Variables[v]; !ok {
			g.logger.WithField("variable", v).Warn("variable not used by component type " + ct.Name)
		}
	}

	vars := ct.Values(g.opts.Variables)
	vars[templates.VarComponent] = name
	vars[templates.VarEntryName] = withDefault(g.opts.EntryName, model.DefaultEntryName)
	vars[templates.VarInsName] = withDefault(g.opts.InsName, model.DefaultInstrumentName)

	files, err := g.opts.Package.Files(ct.Files)
	if err != nil {
		return nil, err
	}

	docs, err := renderBundle(g.opts.Package, files, vars, name)
	if err != nil {
		return nil, err
	}

	for _, d := range docs {
		if d.Kind != model.KindComponent {
			continue
		}

		if d.XML, err = dropEmptyRefs(d.XML); err != nil {
			return nil, err
		}
	}

	aux, err := unresolved(docs)
	if err != nil {
		return nil, err
	}

	return append(docs, aux...), nil
}

func (g *StdComp) Create(ctx context.Context, repo store.Repository) error {
	docs, err := g.Documents(ctx)
	if err != nil {
		return err
	}

	if err := check(ctx, repo, docs, g.opts.Overwrite, model.KindComponent, model.KindDataSource); err != nil {
		return err
	}

	if err := write(ctx, repo, docs, g.logger); err != nil {
		return err
	}

	if !g.opts.Mandatory {
		return nil
	}

	m, ok := repo.(store.Mandatory)
	if !ok {
		g.logger.WithField("store", repo.Name()).Warn("store has no mandatory components, flag ignored")
		return nil
	}

	return m.SetMandatory(ctx, names(docs, model.KindComponent, false))
}

// CompOptions configures simple component generation, one field per component.
type CompOptions struct {
	// Names are component names, Devices is used when empty.
	Names   []string
	Devices Range
	// NexusPath is the field location, a trailing slash names the field after the component.
	NexusPath        string
	Strategy         string
	DataSourcePrefix string
	Type             string
	Units            string
	Chunk            string
	CanFail          bool
	FieldLinks       bool
	SourceLinks      bool
	EntryName        string
	NoLower          bool
	Overwrite        bool
}

// DefaultNexusPath places fields in the instrument collection.
func DefaultNexusPath(entryName string) string {
	return "/" + descriptor.EntryName(withDefault(entryName, model.DefaultEntryName)) +
		":NXentry/" + model.DefaultInstrumentName + "/collection/"
}

// Comp generates simple components with a field reading one datasource each.
type Comp struct {
	opts   *CompOptions
	logger *logrus.Entry
}

func NewComp(opts *CompOptions, logger *logrus.Entry) *Comp {
	return &Comp{opts: opts, logger: logger.WithField("generator", "comp")}
}

func (g *Comp) components() ([]string, error) {
	if len(g.opts.Names) > 0 {
		return g.opts.Names, nil
	}

	entries, err := g.opts.Devices.entries()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.name)
	}

	return out, nil
}

func (g *Comp) Documents(_ context.Context) ([]*Document, error) {
	cps, err := g.components()
	if err != nil {
		return nil, err
	}

	strategy := descriptor.StrategyStep
	if g.opts.Strategy != "" {
		if strategy, err = descriptor.ParseStrategy(g.opts.Strategy); err != nil {
			return nil, err
		}
	}

	rank := 0
	if g.opts.Chunk != "" {
		if rank, err = descriptor.ParseChunk(g.opts.Chunk); err != nil {
			return nil, err
		}
	}

	path := g.opts.NexusPath
	if strings.TrimSpace(path) == "" {
		path = DefaultNexusPath(g.opts.EntryName)
	}

	segments, fieldName, err := descriptor.ParsePath(path)
	if err != nil {
		return nil, err
	}

	typ := withDefault(g.opts.Type, "NX_FLOAT")
	lower := !g.opts.NoLower
	docs := []*Document{}

	for _, n := range cps {
		name := naming.Apply(n, lower)
		dsName := naming.Apply(g.opts.DataSourcePrefix+n, lower)

		field := fieldName
		if field == "" {
			field = name
		}

		c := &descriptor.Component{Name: name}
		c.Walk(segments).AddField(&descriptor.Field{
			Name:       field,
			Type:       typ,
			Units:      g.opts.Units,
			DataSource: dsName,
			Strategy:   strategy,
			CanFail:    g.opts.CanFail,
			Rank:       rank,
		})

		if g.opts.FieldLinks || g.opts.SourceLinks {
			target := descriptor.TargetPath(segments, field)
			data := c.Walk([]descriptor.PathSegment{segments[0], {Name: "data", Type: "NXdata"}})

			if g.opts.FieldLinks {
				data.AddLink(&descriptor.Link{Name: field, Target: target})
			}

			if g.opts.SourceLinks && (!g.opts.FieldLinks || dsName != field) {
				data.AddLink(&descriptor.Link{Name: dsName, Target: target})
			}
		}

		doc, err := componentDocument(c)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	aux, err := unresolved(docs)
	if err != nil {
		return nil, err
	}

	return append(docs, aux...), nil
}

func (g *Comp) Create(ctx context.Context, repo store.Repository) error {
	docs, err := g.Documents(ctx)
	if err != nil {
		return err
	}

	if err := check(ctx, repo, docs, g.opts.Overwrite, model.KindComponent); err != nil {
		return err
	}

	return write(ctx, repo, docs, g.logger)
}
