// Package inventory reads the online.xml device inventory.
package inventory

import (
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/xmldoc"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	rootTag   = "hw"
	deviceTag = "device"

	// DefaultPort is the tango port of hostnames given without one.
	DefaultPort = 10000
)

// Device is one inventory entry.
type Device struct {
	Name           string
	Type           string
	Module         string
	TangoDevice    string
	Control        string
	Hostname       string
	Controller     string
	Channel        string
	RootDeviceName string
	// Extra holds the other child elements by tag.
	Extra map[string]string
}

var knownTags = map[string]bool{
	"name":           true,
	"type":           true,
	"module":         true,
	"device":         true,
	"control":        true,
	"hostname":       true,
	"controller":     true,
	"channel":        true,
	"rootdevicename": true,
}

// HostPort splits the device hostname into host and port.
func (d *Device) HostPort() (string, int) {
	host, port, found := strings.Cut(d.Hostname, ":")
	if !found {
		return host, DefaultPort
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return host, DefaultPort
	}

	return host, p
}

// AsLogFields returns the device as slog arguments.
func (d *Device) AsLogFields() []any {
	return []any{
		"name", d.Name,
		"module", d.Module,
		"device", d.TangoDevice,
		"hostname", d.Hostname,
	}
}

// Parse reads the devices of an inventory document in document order.
// Devices with a missing or blank name are skipped.
func Parse(r io.Reader) ([]*Device, error) {
	doc, err := xmldoc.Read(r)
	if err != nil {
		return nil, err
	}

	root := doc.Root()
	if root.Tag != rootTag {
		return nil, errors.Wrap(model.ErrParse, "inventory root element is "+root.Tag+", expected "+rootTag)
	}

	devices := []*Device{}

	for _, e := range root.SelectElements(deviceTag) {
		d := deviceFromElement(e)
		if d == nil {
			continue
		}

		devices = append(devices, d)
	}

	return devices, nil
}

// ParseFile reads an inventory file.
func ParseFile(fs afero.Fs, path string) ([]*Device, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(model.ErrWrongParameter, "cannot open inventory file: "+err.Error())
	}
	defer f.Close()

	devices, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	return devices, nil
}

func deviceFromElement(e *etree.Element) *Device {
	if xmldoc.Text(e, "name") == "" {
		return nil
	}

	d := &Device{
		Name:           xmldoc.Text(e, "name"),
		Type:           xmldoc.Text(e, "type"),
		Module:         xmldoc.Text(e, "module"),
		TangoDevice:    xmldoc.Text(e, "device"),
		Control:        xmldoc.Text(e, "control"),
		Hostname:       xmldoc.Text(e, "hostname"),
		Controller:     xmldoc.Text(e, "controller"),
		Channel:        xmldoc.Text(e, "channel"),
		RootDeviceName: xmldoc.Text(e, "rootdevicename"),
		Extra:          map[string]string{},
	}

	for _, c := range e.ChildElements() {
		if knownTags[c.Tag] {
			continue
		}

		d.Extra[c.Tag] = strings.TrimSpace(c.Text())
	}

	return d
}
