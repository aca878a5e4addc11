package creator

import (
	"context"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/nexdatas/nxstools/internal/catalog"
	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/inventory"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/naming"
	"github.com/nexdatas/nxstools/internal/store"
	"github.com/nexdatas/nxstools/internal/templates"
	"github.com/nexdatas/nxstools/internal/xmldoc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// OnlineDSOptions configures datasource generation from an inventory.
type OnlineDSOptions struct {
	Devices []*inventory.Device
	// NoClientLike keeps motor datasources out of the client-like group.
	NoClientLike bool
	NoLower      bool
}

// OnlineDS generates the datasources of every inventory device. Existing
// datasources are always replaced.
type OnlineDS struct {
	opts   *OnlineDSOptions
	logger *logrus.Entry
}

func NewOnlineDS(opts *OnlineDSOptions, logger *logrus.Entry) *OnlineDS {
	return &OnlineDS{opts: opts, logger: logger.WithField("generator", "onlineds")}
}

func (g *OnlineDS) Documents(_ context.Context) ([]*Document, error) {
	lower := !g.opts.NoLower
	docs := []*Document{}
	seen := map[string]bool{}

	add := func(ds *descriptor.DataSource) error {
		if seen[ds.Name] {
			g.logger.WithField("datasource", ds.Name).Warn("duplicated datasource name, skipped")
			return nil
		}

		doc, err := dataSourceDocument(ds)
		if err != nil {
			return err
		}

		seen[ds.Name] = true
		docs = append(docs, doc)

		return nil
	}

	for _, d := range g.opts.Devices {
		logger := g.logger.WithFields(logrus.Fields{"device": d.Name, "module": d.Module})

		mod, err := catalog.Lookup(d.Module)
		if err != nil {
			logger.Warn("unknown module, skipped")
			continue
		}

		name := naming.Apply(d.Name, lower)
		if strings.TrimSpace(name) == "" {
			return nil, errors.Wrap(model.ErrWrongParameter, "device "+d.TangoDevice+" without name")
		}

		if mod.Pair != nil {
			ds, err := pairDataSource(d, name, mod, !g.opts.NoClientLike)
			if err != nil {
				logger.WithError(err).Warn("datasource skipped")
			} else if err := add(ds); err != nil {
				return nil, err
			}
		}

		for _, ds := range multiDataSources(d, name, mod.MultiAttributes) {
			if err := add(ds); err != nil {
				return nil, err
			}
		}
	}

	return docs, nil
}

func (g *OnlineDS) Create(ctx context.Context, repo store.Repository) error {
	docs, err := g.Documents(ctx)
	if err != nil {
		return err
	}

	return write(ctx, repo, docs, g.logger)
}

func hostPort(d *inventory.Device) (string, string) {
	if d.Hostname == "" {
		return "", ""
	}

	host, p := d.HostPort()

	return host, strconv.Itoa(p)
}

// pairDataSource reads the tango attribute paired with the public one, or is a
// CLIENT datasource when the module has no tango counterpart.
func pairDataSource(d *inventory.Device, name string, mod *catalog.Module, clientLike bool) (*descriptor.DataSource, error) {
	if mod.Pair.Source == "" {
		ds := descriptor.NewClientDataSource(name, name)
		return ds, ds.Validate()
	}

	host, p := hostPort(d)
	ds := descriptor.NewTangoDataSource(name, d.TangoDevice, mod.Pair.Source, host, p)

	if clientLike && catalog.IsMotor(mod.Name) {
		ds.Group = descriptor.ClientGroup
	}

	return ds, ds.Validate()
}

// multiDataSources returns one TANGO datasource per attribute, grouped by device.
func multiDataSources(d *inventory.Device, name string, attrs []string) []*descriptor.DataSource {
	host, p := hostPort(d)
	out := make([]*descriptor.DataSource, 0, len(attrs))

	for _, a := range attrs {
		ds := descriptor.NewTangoDataSource(multiName(name, a), d.TangoDevice, a, host, p)
		ds.Group = name + "_"
		out = append(out, ds)
	}

	return out
}

func multiName(name, attr string) string {
	return name + "_" + strings.ToLower(attr)
}

// OnlineCPOptions configures component generation for one inventory device.
type OnlineCPOptions struct {
	Devices   []*inventory.Device
	Component string
	Package   *templates.Package
	EntryName string
	InsName   string
	NoLower   bool
	Overwrite bool
}

// OnlineCP generates the component of an inventory device with its datasources.
// Datasources are replaced, the component only with Overwrite.
type OnlineCP struct {
	opts   *OnlineCPOptions
	logger *logrus.Entry
}

func NewOnlineCP(opts *OnlineCPOptions, logger *logrus.Entry) *OnlineCP {
	return &OnlineCP{opts: opts, logger: logger.WithField("generator", "onlinecp")}
}

// Components lists the inventory devices a component can be generated for.
func (g *OnlineCP) Components() []string {
	set := map[string]bool{}

	for _, d := range g.opts.Devices {
		mod, err := catalog.Lookup(d.Module)
		if err != nil || !mod.HasComponent() {
			continue
		}

		set[naming.Apply(d.Name, !g.opts.NoLower)] = true
	}

	return sortedNames(set)
}

func (g *OnlineCP) device() (*inventory.Device, error) {
	lower := !g.opts.NoLower
	want := naming.Apply(strings.TrimSpace(g.opts.Component), lower)

	if want == "" {
		return nil, errors.Wrap(model.ErrMissingParameter, "component name is required")
	}

	for _, d := range g.opts.Devices {
		if naming.Apply(d.Name, lower) == want {
			return d, nil
		}
	}

	return nil, errors.Wrap(model.ErrWrongParameter, "device "+g.opts.Component+" not found in the inventory")
}

func (g *OnlineCP) vars(d *inventory.Device, name string) map[string]string {
	host, p := hostPort(d)

	hostname := host
	if host != "" {
		hostname = host + ":" + p
	}

	return map[string]string{
		templates.VarDeviceName: name,
		templates.VarDevice:     d.TangoDevice,
		templates.VarHostname:   hostname,
		templates.VarHost:       host,
		templates.VarPort:       p,
		templates.VarEntryName:  withDefault(g.opts.EntryName, model.DefaultEntryName),
		templates.VarInsName:    withDefault(g.opts.InsName, model.DefaultInstrumentName),
		templates.VarComponent:  name,
	}
}

func withDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}

	return value
}

func (g *OnlineCP) Documents(_ context.Context) ([]*Document, error) {
	d, err := g.device()
	if err != nil {
		return nil, err
	}

	mod, err := catalog.Lookup(d.Module)
	if err != nil {
		return nil, err
	}

	if !mod.HasComponent() {
		return nil, errors.Wrap(model.ErrUnknownModule, "no component for module "+d.Module)
	}

	name := naming.Apply(d.Name, !g.opts.NoLower)
	docs := []*Document{}

	for _, ds := range multiDataSources(d, name, mod.MultiAttributes) {
		doc, err := dataSourceDocument(ds)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	if len(mod.TemplateFiles) > 0 {
		if g.opts.Package == nil {
			return nil, errors.Wrap(model.ErrMissingParameter, "template package is required for module "+mod.Name)
		}

		files, err := g.opts.Package.Files(mod.TemplateFiles)
		if err != nil {
			return nil, err
		}

		rendered, err := renderBundle(g.opts.Package, files, g.vars(d, name), name)
		if err != nil {
			return nil, err
		}

		docs = replaceByName(docs, rendered)
	}

	return g.completeComponent(docs, name, mod)
}

// replaceByName appends docs, a later document replaces an earlier one of
// the same kind and name in place.
func replaceByName(docs, more []*Document) []*Document {
	for _, m := range more {
		replaced := false

		for i, d := range docs {
			if d.Kind == m.Kind && d.Name == m.Name {
				docs[i] = m
				replaced = true

				break
			}
		}

		if !replaced {
			docs = append(docs, m)
		}
	}

	return docs
}

// completeComponent makes sure the component reaches every datasource of the
// module, building it when no template provides one.
func (g *OnlineCP) completeComponent(docs []*Document, name string, mod *catalog.Module) ([]*Document, error) {
	var cp *Document

	for _, d := range docs {
		if d.Kind == model.KindComponent && d.Name == name {
			cp = d
			break
		}
	}

	if cp == nil {
		c, entry := descriptor.NewComponent(name, withDefault(g.opts.EntryName, model.DefaultEntryName))
		entry.Group("NXinstrument", withDefault(g.opts.InsName, model.DefaultInstrumentName)).
			Group("NXdetector", name).
			Group("NXcollection", "collection")

		doc, err := componentDocument(c)
		if err != nil {
			return nil, err
		}

		cp = doc
		docs = append(docs, cp)
	}

	reached := reachable(cp.XML, docs)
	missing := []string{}

	for _, a := range mod.MultiAttributes {
		if !reached[multiName(name, a)] {
			missing = append(missing, a)
		}
	}

	if len(missing) == 0 {
		return docs, nil
	}

	xml, err := appendFields(cp.XML, name, mod.Name, missing)
	if err != nil {
		return nil, err
	}

	cp.XML = xml

	return docs, nil
}

// reachable follows the references of text through the datasources of docs.
func reachable(text string, docs []*Document) map[string]bool {
	byName := map[string]*Document{}
	for _, d := range docs {
		if d.Kind == model.KindDataSource {
			byName[d.Name] = d
		}
	}

	seen := map[string]bool{}
	queue := descriptor.DataSourceRefs(text)

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		if seen[ref] {
			continue
		}

		seen[ref] = true

		if d, ok := byName[ref]; ok {
			queue = append(queue, descriptor.DataSourceRefs(d.XML)...)
		}
	}

	return seen
}

// appendFields adds a field per attribute to the collection of the detector group.
func appendFields(text, name, module string, attrs []string) (string, error) {
	doc, err := xmldoc.Parse(text)
	if err != nil {
		return "", err
	}

	parent := doc.FindElement("//group[@type='NXdetector'][@name='" + name + "']")
	if parent == nil {
		parent = doc.FindElement("//group[@type='NXdetector']")
	}

	if parent == nil {
		parent = doc.Root()
	}

	collection := parent.FindElement("./group[@type='NXcollection']")
	if collection == nil {
		collection = etree.NewElement("group")
		collection.CreateAttr("type", "NXcollection")
		collection.CreateAttr("name", "collection")
		xmldoc.Append(parent, collection)
	}

	for _, a := range attrs {
		spec := catalog.Field(module, a)
		f := &descriptor.Field{
			Name:       strings.ToLower(a),
			Type:       spec.Type,
			Units:      spec.Units,
			DataSource: multiName(name, a),
			Strategy:   spec.Strategy,
		}

		xmldoc.Append(collection, f.Element())
	}

	return xmldoc.Raw(doc)
}

func (g *OnlineCP) Create(ctx context.Context, repo store.Repository) error {
	docs, err := g.Documents(ctx)
	if err != nil {
		return err
	}

	if err := check(ctx, repo, docs, g.opts.Overwrite, model.KindComponent); err != nil {
		return err
	}

	return write(ctx, repo, docs, g.logger)
}
