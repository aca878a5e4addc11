package descriptor

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/xmldoc"
	"github.com/pkg/errors"
)

// Strategy tells when the writer stores a field value.
type Strategy string

const (
	StrategyInit    Strategy = "INIT"
	StrategyStep    Strategy = "STEP"
	StrategyFinal   Strategy = "FINAL"
	StrategyPostRun Strategy = "POSTRUN"
)

// ParseStrategy converts a strategy mode name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToUpper(strings.TrimSpace(s))); st {
	case StrategyInit, StrategyStep, StrategyFinal, StrategyPostRun:
		return st, nil
	default:
		return "", errors.Wrap(model.ErrWrongParameter, "unknown strategy "+s)
	}
}

// Chunk is the rank of a field value.
type Chunk string

const (
	ChunkScalar   Chunk = "SCALAR"
	ChunkSpectrum Chunk = "SPECTRUM"
	ChunkImage    Chunk = "IMAGE"
)

// ParseChunk converts a chunk name into a field rank.
func ParseChunk(s string) (int, error) {
	switch Chunk(strings.ToUpper(strings.TrimSpace(s))) {
	case ChunkScalar, "":
		return 0, nil
	case ChunkSpectrum:
		return 1, nil
	case ChunkImage:
		return 2, nil
	default:
		return 0, errors.Wrap(model.ErrWrongParameter, "unknown chunk "+s)
	}
}

// EntryName is the NXentry name the writer expands to <entryname><serialno>.
func EntryName(base string) string {
	return "$var.entryname#'" + base + "'$var.serialno"
}

// Field is a NeXus field, with a literal value or a datasource reference.
type Field struct {
	Name       string
	Type       string
	Units      string
	Value      string
	DataSource string
	Strategy   Strategy
	CanFail    bool
	Rank       int
}

// Link is a NeXus link to another path of the file.
type Link struct {
	Name   string
	Target string
}

// Group is a NeXus group.
type Group struct {
	Type   string
	Name   string
	Groups []*Group
	Fields []*Field
	Links  []*Link
}

// NewGroup returns an empty group.
func NewGroup(typ, name string) *Group {
	return &Group{Type: typ, Name: name}
}

// Group returns the child group with the type and name, creating it when missing.
func (g *Group) Group(typ, name string) *Group {
	for _, c := range g.Groups {
		if c.Type == typ && c.Name == name {
			return c
		}
	}

	c := NewGroup(typ, name)
	g.Groups = append(g.Groups, c)

	return c
}

func (g *Group) AddField(f *Field) *Group {
	g.Fields = append(g.Fields, f)
	return g
}

func (g *Group) AddLink(l *Link) *Group {
	g.Links = append(g.Links, l)
	return g
}

// Element builds the group element.
func (g *Group) Element() *etree.Element {
	e := etree.NewElement("group")
	e.CreateAttr("type", g.Type)
	e.CreateAttr("name", g.Name)

	for _, f := range g.Fields {
		e.AddChild(f.Element())
	}

	for _, c := range g.Groups {
		e.AddChild(c.Element())
	}

	for _, l := range g.Links {
		e.AddChild(l.Element())
	}

	return e
}

// Element builds the field element.
func (f *Field) Element() *etree.Element {
	e := etree.NewElement("field")
	e.CreateAttr("name", f.Name)

	if f.Type != "" {
		e.CreateAttr("type", f.Type)
	}

	if f.Units != "" {
		e.CreateAttr("units", f.Units)
	}

	switch {
	case f.DataSource != "":
		e.CreateText(DataSourceRef(f.DataSource))
	case f.Value != "":
		e.CreateText(f.Value)
	}

	if f.Strategy != "" {
		st := e.CreateElement("strategy")
		st.CreateAttr("mode", string(f.Strategy))

		if f.CanFail {
			st.CreateAttr("canfail", "true")
		}
	}

	if f.Rank > 0 {
		e.CreateElement("dimensions").CreateAttr("rank", strconv.Itoa(f.Rank))
	}

	return e
}

// Element builds the link element.
func (l *Link) Element() *etree.Element {
	e := etree.NewElement("link")
	e.CreateAttr("name", l.Name)
	e.CreateAttr("target", l.Target)

	return e
}

// Component is a named tree of groups written into the output file.
type Component struct {
	Name   string
	Groups []*Group
}

// NewComponent returns a component with a single NXentry group named after entry.
func NewComponent(name, entry string) (*Component, *Group) {
	entryGroup := NewGroup("NXentry", EntryName(entry))

	return &Component{Name: name, Groups: []*Group{entryGroup}}, entryGroup
}

// Validate checks the component name and the names of its nodes.
func (c *Component) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.Wrap(model.ErrWrongParameter, "component name is empty")
	}

	var check func(g *Group) error
	check = func(g *Group) error {
		if g.Name == "" && g.Type == "" {
			return errors.Wrap(model.ErrWrongParameter, c.Name+": group without name and type")
		}

		for _, f := range g.Fields {
			if strings.TrimSpace(f.Name) == "" {
				return errors.Wrap(model.ErrWrongParameter, c.Name+": field without name in "+g.Name)
			}
		}

		for _, sub := range g.Groups {
			if err := check(sub); err != nil {
				return err
			}
		}

		return nil
	}

	for _, g := range c.Groups {
		if err := check(g); err != nil {
			return err
		}
	}

	return nil
}

// XML renders the component as a definition document.
func (c *Component) XML() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	doc, root := xmldoc.New()
	for _, g := range c.Groups {
		root.AddChild(g.Element())
	}

	return xmldoc.String(doc)
}

// DataSources lists the datasource names the component fields reference.
func (c *Component) DataSources() []string {
	names := []string{}
	seen := map[string]bool{}

	var walk func(g *Group)
	walk = func(g *Group) {
		for _, f := range g.Fields {
			if f.DataSource != "" && !seen[f.DataSource] {
				seen[f.DataSource] = true
				names = append(names, f.DataSource)
			}
		}

		for _, sub := range g.Groups {
			walk(sub)
		}
	}

	for _, g := range c.Groups {
		walk(g)
	}

	return names
}

// PathSegment is one group of a nexus path.
type PathSegment struct {
	Name string
	Type string
}

// ParsePath splits a nexus path like /entry:NXentry/instrument/collection/field
// into its groups and the trailing field name, empty when the path ends with /.
// Groups without a type get NX<name>.
func ParsePath(path string) ([]PathSegment, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, "", errors.Wrap(model.ErrWrongParameter, "nexus path is empty")
	}

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	field := parts[len(parts)-1]
	parts = parts[:len(parts)-1]

	if strings.Contains(field, ":") {
		parts = append(parts, field)
		field = ""
	}

	segments := make([]PathSegment, 0, len(parts))

	for _, p := range parts {
		if p == "" {
			return nil, "", errors.Wrap(model.ErrWrongParameter, "empty group in nexus path "+path)
		}

		seg := PathSegment{Name: p, Type: "NX" + p}
		if i := strings.LastIndex(p, ":"); i >= 0 {
			seg.Name, seg.Type = p[:i], p[i+1:]
		}

		if seg.Name == "" || seg.Type == "" {
			return nil, "", errors.Wrap(model.ErrWrongParameter, "invalid group "+p+" in nexus path")
		}

		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		return nil, "", errors.Wrap(model.ErrWrongParameter, "nexus path without groups "+path)
	}

	return segments, field, nil
}

// Walk returns the group at the segments, creating missing groups.
func (c *Component) Walk(segments []PathSegment) *Group {
	var g *Group

	for _, top := range c.Groups {
		if top.Name == segments[0].Name && top.Type == segments[0].Type {
			g = top
			break
		}
	}

	if g == nil {
		g = NewGroup(segments[0].Type, segments[0].Name)
		c.Groups = append(c.Groups, g)
	}

	for _, seg := range segments[1:] {
		g = g.Group(seg.Type, seg.Name)
	}

	return g
}

// TargetPath renders segments and a field name as a link target.
func TargetPath(segments []PathSegment, field string) string {
	parts := make([]string, 0, len(segments)+1)
	for _, s := range segments {
		parts = append(parts, s.Name+":"+s.Type)
	}

	if field != "" {
		parts = append(parts, field)
	}

	return "/" + strings.Join(parts, "/")
}
