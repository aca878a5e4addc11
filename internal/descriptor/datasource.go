package descriptor

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/xmldoc"
	"github.com/pkg/errors"
)

// Type of a datasource.
type Type string

const (
	TypeTango  Type = "TANGO"
	TypeClient Type = "CLIENT"
	TypeDB     Type = "DB"
	TypePyEval Type = "PYEVAL"
)

const (
	// MemberAttribute is the default TANGO member kind.
	MemberAttribute = "attribute"
	// ClientGroup marks TANGO datasources read by the client when available.
	ClientGroup = "__CLIENT__"

	datasourceTag = "datasource"
)

// ParseType converts a datasource type name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeTango, TypeClient, TypeDB, TypePyEval:
		return t, nil
	default:
		return "", errors.Wrap(model.ErrWrongParameter, "unknown datasource type "+s)
	}
}

// DataSource is a named reference to the acquisition of one value.
type DataSource struct {
	Type Type
	Name string

	// TANGO device reference
	Device   string
	Member   string
	Hostname string
	Port     string
	Group    string

	// Record is the TANGO attribute or the CLIENT record name.
	Record string

	// DB query
	DBType string
	DBName string
	Format string
	Query  string

	// PYEVAL script and the datasources it reads.
	Script string
	Inputs []string
}

// NewTangoDataSource returns a TANGO datasource reading attribute of device.
func NewTangoDataSource(name, device, attribute, hostname, port string) *DataSource {
	return &DataSource{
		Type:     TypeTango,
		Name:     name,
		Device:   device,
		Member:   MemberAttribute,
		Hostname: hostname,
		Port:     port,
		Record:   attribute,
	}
}

// NewClientDataSource returns a CLIENT datasource.
func NewClientDataSource(name, record string) *DataSource {
	return &DataSource{Type: TypeClient, Name: name, Record: record}
}

// NewDBDataSource returns a DB datasource running query.
func NewDBDataSource(name, dbType, dbName, format, query string) *DataSource {
	return &DataSource{Type: TypeDB, Name: name, DBType: dbType, DBName: dbName, Format: format, Query: query}
}

// NewPyEvalDataSource returns a PYEVAL datasource evaluating script.
func NewPyEvalDataSource(name, script string, inputs ...string) *DataSource {
	return &DataSource{Type: TypePyEval, Name: name, Script: script, Inputs: inputs}
}

// Validate checks the mandatory fields of the datasource type.
func (ds *DataSource) Validate() error {
	if strings.TrimSpace(ds.Name) == "" {
		return errors.Wrap(model.ErrWrongParameter, "datasource name is empty")
	}

	switch ds.Type {
	case TypeTango:
		if strings.TrimSpace(ds.Device) == "" {
			return errors.Wrap(model.ErrWrongParameter, ds.Name+": device name is empty")
		}

		if strings.TrimSpace(ds.Record) == "" {
			return errors.Wrap(model.ErrWrongParameter, ds.Name+": attribute name is empty")
		}
	case TypeClient:
		if strings.TrimSpace(ds.Record) == "" {
			return errors.Wrap(model.ErrWrongParameter, ds.Name+": record name is empty")
		}
	case TypeDB:
		if strings.TrimSpace(ds.Query) == "" {
			return errors.Wrap(model.ErrWrongParameter, ds.Name+": query is empty")
		}
	case TypePyEval:
		if strings.TrimSpace(ds.Script) == "" {
			return errors.Wrap(model.ErrWrongParameter, ds.Name+": script is empty")
		}
	default:
		return errors.Wrap(model.ErrWrongParameter, ds.Name+": unknown datasource type "+string(ds.Type))
	}

	return nil
}

// Element builds the datasource element for a definition root parent.
func (ds *DataSource) Element() *etree.Element {
	return ds.element(1)
}

// AppendTo builds the datasource element and adds it as the last child of parent.
func (ds *DataSource) AppendTo(parent *etree.Element) *etree.Element {
	e := ds.element(xmldoc.Depth(parent) + 1)
	parent.AddChild(e)

	return e
}

func (ds *DataSource) element(depth int) *etree.Element {
	e := etree.NewElement(datasourceTag)
	e.CreateAttr("type", string(ds.Type))
	e.CreateAttr("name", ds.Name)

	switch ds.Type {
	case TypeTango:
		dev := e.CreateElement("device")
		dev.CreateAttr("name", ds.Device)

		member := ds.Member
		if member == "" {
			member = MemberAttribute
		}

		dev.CreateAttr("member", member)

		if ds.Hostname != "" {
			dev.CreateAttr("hostname", ds.Hostname)
		}

		if ds.Port != "" {
			dev.CreateAttr("port", ds.Port)
		}

		if ds.Group != "" {
			dev.CreateAttr("group", ds.Group)
		}

		e.CreateElement("record").CreateAttr("name", ds.Record)
	case TypeClient:
		e.CreateElement("record").CreateAttr("name", ds.Record)
	case TypeDB:
		db := e.CreateElement("database")
		if ds.DBName != "" {
			db.CreateAttr("dbname", ds.DBName)
		}

		if ds.DBType != "" {
			db.CreateAttr("dbtype", ds.DBType)
		}

		q := e.CreateElement("query")
		if ds.Format != "" {
			q.CreateAttr("format", ds.Format)
		}

		q.SetText(ds.Query)
	case TypePyEval:
		res := e.CreateElement("result")
		res.CreateAttr("name", "result")
		res.SetText("\n" + strings.Trim(ds.Script, "\n"))

		if len(ds.Inputs) > 0 {
			refs := make([]string, 0, len(ds.Inputs))
			for _, in := range ds.Inputs {
				refs = append(refs, DataSourceRef(in))
			}

			inner := xmldoc.Newline(depth + 1)
			e.CreateText(inner + strings.Join(refs, inner) + xmldoc.Newline(depth))
		}
	}

	return e
}

// XML renders the datasource as a definition document.
func (ds *DataSource) XML() (string, error) {
	if err := ds.Validate(); err != nil {
		return "", err
	}

	doc, root := xmldoc.New()
	ds.AppendTo(root)

	return xmldoc.String(doc)
}

// ParseDataSource reads the first datasource of a definition document.
func ParseDataSource(text string) (*DataSource, error) {
	doc, err := xmldoc.Parse(text)
	if err != nil {
		return nil, err
	}

	e := doc.Root()
	if e.Tag != datasourceTag {
		e = e.FindElement(".//" + datasourceTag)
	}

	if e == nil {
		return nil, errors.Wrap(model.ErrParse, "no datasource element")
	}

	return dataSourceFromElement(e)
}

func dataSourceFromElement(e *etree.Element) (*DataSource, error) {
	t, err := ParseType(e.SelectAttrValue("type", ""))
	if err != nil {
		return nil, errors.Wrap(model.ErrParse, err.Error())
	}

	ds := &DataSource{Type: t, Name: e.SelectAttrValue("name", "")}

	if rec := e.SelectElement("record"); rec != nil {
		ds.Record = rec.SelectAttrValue("name", "")
	}

	switch t {
	case TypeTango:
		if dev := e.SelectElement("device"); dev != nil {
			ds.Device = dev.SelectAttrValue("name", "")
			ds.Member = dev.SelectAttrValue("member", "")
			ds.Hostname = dev.SelectAttrValue("hostname", "")
			ds.Port = dev.SelectAttrValue("port", "")
			ds.Group = dev.SelectAttrValue("group", "")
		}
	case TypeDB:
		if db := e.SelectElement("database"); db != nil {
			ds.DBName = db.SelectAttrValue("dbname", "")
			ds.DBType = db.SelectAttrValue("dbtype", "")
		}

		if q := e.SelectElement("query"); q != nil {
			ds.Format = q.SelectAttrValue("format", "")
			ds.Query = strings.TrimSpace(q.Text())
		}
	case TypePyEval:
		if res := e.SelectElement("result"); res != nil {
			ds.Script = strings.Trim(res.Text(), "\n")
		}

		ds.Inputs = DataSourceRefs(directText(e))
	}

	return ds, nil
}

// directText joins the character data directly inside e.
func directText(e *etree.Element) string {
	var sb strings.Builder

	for _, c := range e.Child {
		if cd, ok := c.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
