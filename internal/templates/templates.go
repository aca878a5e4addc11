// Package templates provides the XML template packages used to generate
// detector and standard components.
package templates

import (
	"embed"
	"encoding/xml"
	"io/fs"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	// ManifestFile lists the standard component types of a package.
	ManifestFile = "standard.yaml"

	embeddedDir = "xmltemplates"
	varPrefix   = "$var."
)

// Variables the generators always set. They are not listed to the user.
const (
	VarEntryName  = "__entryname__"
	VarInsName    = "__insname__"
	VarComponent  = "__component__"
	VarDeviceName = "name"
	VarDevice     = "device"
	VarHostname   = "hostname"
	VarHost       = "host"
	VarPort       = "port"
)

//go:embed xmltemplates
var embedded embed.FS

// Variable is a template variable with its documentation and default value.
type Variable struct {
	Name    string `yaml:"-"`
	Doc     string `yaml:"doc"`
	Default string `yaml:"default"`
}

// ComponentType is a standard component described in the manifest.
type ComponentType struct {
	Name        string               `yaml:"-"`
	Description string               `yaml:"description"`
	Files       []string             `yaml:"files"`
	Variables   map[string]*Variable `yaml:"variables"`
}

// SortedVariables returns the visible variables by name.
func (c *ComponentType) SortedVariables() []*Variable {
	out := make([]*Variable, 0, len(c.Variables))
	for _, v := range c.Variables {
		if Hidden(v.Name) {
			continue
		}

		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Values merges given over the variable defaults. Names the type does not
// declare are dropped.
func (c *ComponentType) Values(given map[string]string) map[string]string {
	out := make(map[string]string, len(c.Variables))
	for name, v := range c.Variables {
		out[name] = v.Default

		if value, ok := given[name]; ok {
			out[name] = value
		}
	}

	return out
}

type manifest struct {
	Components map[string]*ComponentType `yaml:"components"`
}

// Package is a directory of template files with an optional manifest.
type Package struct {
	fsys  fs.FS
	types map[string]*ComponentType
}

// Default returns the package compiled into the binary.
func Default() (*Package, error) {
	sub, err := fs.Sub(embedded, embeddedDir)
	if err != nil {
		return nil, errors.Wrap(err, "embedded templates")
	}

	return New(sub)
}

// FromDir returns the package stored in dir.
func FromDir(afs afero.Fs, dir string) (*Package, error) {
	ok, err := afero.DirExists(afs, dir)
	if err != nil || !ok {
		return nil, errors.Wrap(model.ErrWrongParameter, "template package directory not found: "+dir)
	}

	return New(afero.NewIOFS(afero.NewBasePathFs(afs, dir)))
}

// New reads the manifest of the package in fsys.
func New(fsys fs.FS) (*Package, error) {
	p := &Package{fsys: fsys, types: map[string]*ComponentType{}}

	data, err := fs.ReadFile(fsys, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "read "+ManifestFile)
	}

	m := manifest{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(model.ErrParse, ManifestFile+": "+err.Error())
	}

	for name, ct := range m.Components {
		if ct == nil {
			ct = &ComponentType{}
		}

		ct.Name = name
		if ct.Variables == nil {
			ct.Variables = map[string]*Variable{}
		}

		for vn, v := range ct.Variables {
			if v == nil {
				v = &Variable{}
				ct.Variables[vn] = v
			}

			v.Name = vn
		}

		p.types[name] = ct
	}

	return p, nil
}

// ComponentTypes returns the standard component type names, sorted.
func (p *Package) ComponentTypes() []string {
	out := make([]string, 0, len(p.types))
	for name := range p.types {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// ComponentType returns the named standard component type.
func (p *Package) ComponentType(name string) (*ComponentType, error) {
	ct, ok := p.types[name]
	if !ok {
		return nil, errors.Wrap(model.ErrWrongParameter, "unknown component type "+name)
	}

	return ct, nil
}

// Files expands the file patterns against the package, in pattern order.
// A pattern without a match is an error.
func (p *Package) Files(patterns []string) ([]string, error) {
	out := []string{}
	seen := map[string]bool{}

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(p.fsys, pattern)
		if err != nil {
			return nil, errors.Wrap(model.ErrWrongParameter, "template pattern "+pattern+": "+err.Error())
		}

		if len(matches) == 0 {
			return nil, errors.Wrap(model.ErrWrongParameter, "template file not found: "+pattern)
		}

		sort.Strings(matches)

		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	return out, nil
}

// Read returns the content of a template file.
func (p *Package) Read(name string) (string, error) {
	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return "", errors.Wrap(model.ErrWrongParameter, "template file "+name+": "+err.Error())
	}

	return string(data), nil
}

// Render reads a template file and substitutes vars.
func (p *Package) Render(name string, vars map[string]string) (string, error) {
	text, err := p.Read(name)
	if err != nil {
		return "", err
	}

	return Substitute(text, vars), nil
}

// IsDataSource tells datasource templates from component templates.
func IsDataSource(file string) bool {
	return strings.HasSuffix(file, model.KindDataSource.FileSuffix())
}

// Hidden reports whether a variable is set by the generators.
func Hidden(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// Substitute replaces every $var.<name> whose text starts with a name of vars
// not followed by a letter or digit. When several names match the longest one
// is used. Values are XML escaped. Other $var. references belong to the data
// writer and are kept.
func Substitute(text string, vars map[string]string) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		if name != "" {
			names = append(names, name)
		}
	}

	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	var sb strings.Builder

	for {
		i := strings.Index(text, varPrefix)
		if i < 0 {
			sb.WriteString(text)
			break
		}

		sb.WriteString(text[:i])
		rest := text[i+len(varPrefix):]

		matched := false
		for _, name := range names {
			if strings.HasPrefix(rest, name) && !continuesName(rest[len(name):]) {
				_ = xml.EscapeText(&sb, []byte(vars[name]))
				text = rest[len(name):]
				matched = true

				break
			}
		}

		if !matched {
			sb.WriteString(varPrefix)
			text = rest
		}
	}

	return sb.String()
}

func continuesName(rest string) bool {
	r, _ := utf8.DecodeRuneInString(rest)

	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
