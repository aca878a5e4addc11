package creator

import (
	"context"
	"strconv"
	"strings"

	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/inventory"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/naming"
	"github.com/nexdatas/nxstools/internal/store"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Range selects prefixed device names by index. A zero Last selects the
// prefix itself.
type Range struct {
	Prefix  string
	First   int
	Last    int
	Minimal bool
}

// Set tells whether the range spans indices.
func (r Range) Set() bool {
	return r.Last != 0
}

// entry is a generated name with the index suffix it was built from.
type entry struct {
	name   string
	suffix string
}

func (r Range) entries() ([]entry, error) {
	if !r.Set() {
		if strings.TrimSpace(r.Prefix) == "" {
			return nil, errors.Wrap(model.ErrMissingParameter, "device prefix or names are required")
		}

		return []entry{{name: r.Prefix}}, nil
	}

	generated, err := naming.Generate(r.Prefix, r.First, r.Last, r.Minimal)
	if err != nil {
		return nil, err
	}

	out := make([]entry, 0, len(generated))
	for _, g := range generated {
		out = append(out, entry{name: g, suffix: strings.TrimPrefix(g, r.Prefix)})
	}

	return out, nil
}

// ClientDSOptions configures CLIENT datasource generation.
type ClientDSOptions struct {
	// Names are record names, Devices is used when empty.
	Names            []string
	Devices          Range
	DataSourcePrefix string
	NoLower          bool
	Overwrite        bool
}

// ClientDS generates CLIENT datasources.
type ClientDS struct {
	opts   *ClientDSOptions
	logger *logrus.Entry
}

func NewClientDS(opts *ClientDSOptions, logger *logrus.Entry) *ClientDS {
	return &ClientDS{opts: opts, logger: logger.WithField("generator", "clientds")}
}

func (g *ClientDS) Documents(_ context.Context) ([]*Document, error) {
	lower := !g.opts.NoLower
	docs := []*Document{}

	add := func(name, record string) error {
		doc, err := dataSourceDocument(descriptor.NewClientDataSource(naming.Apply(name, lower), record))
		if err != nil {
			return err
		}

		docs = append(docs, doc)

		return nil
	}

	if len(g.opts.Names) > 0 {
		for _, n := range g.opts.Names {
			if err := add(g.opts.DataSourcePrefix+n, n); err != nil {
				return nil, err
			}
		}

		return docs, nil
	}

	entries, err := g.opts.Devices.entries()
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		name := naming.Default(e.name, false)
		if g.opts.DataSourcePrefix != "" {
			name = g.opts.DataSourcePrefix + e.suffix
		}

		if err := add(name, e.name); err != nil {
			return nil, err
		}
	}

	return docs, nil
}

func (g *ClientDS) Create(ctx context.Context, repo store.Repository) error {
	docs, err := g.Documents(ctx)
	if err != nil {
		return err
	}

	if err := check(ctx, repo, docs, g.opts.Overwrite, model.KindDataSource); err != nil {
		return err
	}

	return write(ctx, repo, docs, g.logger)
}

// TangoDSOptions configures TANGO datasource generation over a device range.
type TangoDSOptions struct {
	Devices          Range
	Attribute        string
	DataSourcePrefix string
	Host             string
	Port             int
	Group            string
	// ElementType is the device member kind, attribute by default.
	ElementType string
	NoLower     bool
	Overwrite   bool
}

// TangoDS generates one TANGO datasource per device of a range.
type TangoDS struct {
	opts   *TangoDSOptions
	logger *logrus.Entry
}

func NewTangoDS(opts *TangoDSOptions, logger *logrus.Entry) *TangoDS {
	return &TangoDS{opts: opts, logger: logger.WithField("generator", "tangods")}
}

func (g *TangoDS) Documents(_ context.Context) ([]*Document, error) {
	if strings.TrimSpace(g.opts.Attribute) == "" {
		return nil, errors.Wrap(model.ErrMissingParameter, "attribute name is required")
	}

	entries, err := g.opts.Devices.entries()
	if err != nil {
		return nil, err
	}

	docs := []*Document{}

	for _, e := range entries {
		name := g.opts.DataSourcePrefix + e.suffix
		if strings.TrimSpace(name) == "" {
			name = naming.Default(e.name, false)
		}

		ds := descriptor.NewTangoDataSource(naming.Apply(name, !g.opts.NoLower), e.name, g.opts.Attribute, g.opts.Host, port(g.opts.Host, g.opts.Port))
		ds.Group = g.opts.Group

		if g.opts.ElementType != "" {
			ds.Member = g.opts.ElementType
		}

		doc, err := dataSourceDocument(ds)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (g *TangoDS) Create(ctx context.Context, repo store.Repository) error {
	docs, err := g.Documents(ctx)
	if err != nil {
		return err
	}

	if err := check(ctx, repo, docs, g.opts.Overwrite, model.KindDataSource); err != nil {
		return err
	}

	return write(ctx, repo, docs, g.logger)
}

// port renders the port of a datasource, only set together with a host.
func port(host string, p int) string {
	if host == "" || p <= 0 {
		return ""
	}

	return strconv.Itoa(p)
}

// DeviceDSOptions configures datasource generation for the attributes of one device.
type DeviceDSOptions struct {
	Device string
	// Attributes are read from the device when empty.
	Attributes       []string
	DataSourcePrefix string
	Host             string
	Port             int
	NoGroup          bool
	NoLower          bool
	Overwrite        bool
}

// DeviceDS generates a TANGO datasource for every attribute of a device.
type DeviceDS struct {
	opts   *DeviceDSOptions
	conn   tango.Connector
	logger *logrus.Entry
}

func NewDeviceDS(opts *DeviceDSOptions, conn tango.Connector, logger *logrus.Entry) *DeviceDS {
	return &DeviceDS{opts: opts, conn: conn, logger: logger.WithField("generator", "deviceds")}
}

var skippedAttributes = map[string]bool{"State": true, "Status": true}

func (g *DeviceDS) attributes(ctx context.Context) ([]string, error) {
	if len(g.opts.Attributes) > 0 {
		return g.opts.Attributes, nil
	}

	if g.conn == nil {
		return nil, errors.Wrap(model.ErrMissingParameter, "attribute names are required without a tango connection")
	}

	conn := g.conn
	if g.opts.Host != "" {
		p := g.opts.Port
		if p <= 0 {
			p = inventory.DefaultPort
		}

		conn = conn.OnHost(g.opts.Host, p)
	}

	proxy, err := conn.Device(g.opts.Device)
	if err != nil {
		return nil, err
	}

	all, err := proxy.AttributeNames(ctx)
	if err != nil {
		return nil, err
	}

	out := []string{}
	for _, a := range all {
		if !skippedAttributes[a] {
			out = append(out, a)
		}
	}

	g.logger.WithField("device", g.opts.Device).Debugf("found %d attributes", len(out))

	return out, nil
}

func (g *DeviceDS) Documents(ctx context.Context) ([]*Document, error) {
	if strings.TrimSpace(g.opts.Device) == "" {
		return nil, errors.Wrap(model.ErrMissingParameter, "device name is required")
	}

	attrs, err := g.attributes(ctx)
	if err != nil {
		return nil, err
	}

	group := ""
	if !g.opts.NoGroup {
		group = g.opts.DataSourcePrefix
	}

	docs := []*Document{}

	for _, a := range attrs {
		name := naming.Apply(g.opts.DataSourcePrefix+a, !g.opts.NoLower)

		ds := descriptor.NewTangoDataSource(name, g.opts.Device, a, g.opts.Host, port(g.opts.Host, g.opts.Port))
		ds.Group = group

		doc, err := dataSourceDocument(ds)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (g *DeviceDS) Create(ctx context.Context, repo store.Repository) error {
	docs, err := g.Documents(ctx)
	if err != nil {
		return err
	}

	if err := check(ctx, repo, docs, g.opts.Overwrite, model.KindDataSource); err != nil {
		return err
	}

	return write(ctx, repo, docs, g.logger)
}
