package tango

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	DryRunConfigServer = "nxs/configserver/dryrun"
	DryRunDataWriter   = "nxs/datawriter/dryrun"
)

var (
	errDryRunUnknownDevice    = errors.New("dryrun couldnt find device")
	errDryRunUnknownCommand   = errors.New("dryrun device doesnt support command")
	errDryRunUnknownAttribute = errors.New("dryrun device doesnt support attribute")
	errDryRunClosed           = errors.New("dryrun config server not opened")
)

// dryRunState is the simulated control system, persisted as JSON.
type dryRunState struct {
	Components  map[string]string            `json:"components"`
	DataSources map[string]string            `json:"datasources"`
	Mandatory   []string                     `json:"mandatory"`
	Exported    map[string][]string          `json:"exported"`
	Attributes  map[string]map[string]any    `json:"attributes"`
	Writers     map[string]*dryRunWriter     `json:"writers"`
	Servers     map[string]*dryRunConfigBase `json:"servers"`
}

type dryRunConfigBase struct {
	Opened    bool   `json:"opened"`
	XMLString string `json:"xml_string"`
}

type dryRunWriter struct {
	State      State    `json:"state"`
	FileName   string   `json:"file_name"`
	JSONRecord string   `json:"json_record"`
	XMLSetting string   `json:"xml_settings"`
	Records    []string `json:"records"`
	Entries    int      `json:"entries"`
}

// DryRun is a simulated implementation of the Connector interface,
// providing a configuration server, a data writer and the Tango database.
type DryRun struct {
	mu        sync.Mutex
	fs        afero.Fs
	stateFile string
	host      string
	port      int
	state     *dryRunState
}

// NewDryRun creates a simulated control system, loading stateFile when it exists.
func NewDryRun(fs afero.Fs, stateFile, configServerClass, dataWriterClass string) (*DryRun, error) {
	d := &DryRun{
		fs:        fs,
		stateFile: stateFile,
		host:      "localhost",
		port:      10000,
		state:     defaultDryRunState(configServerClass, dataWriterClass),
	}

	if stateFile == "" {
		return d, nil
	}

	exists, err := afero.Exists(fs, stateFile)
	if err != nil || !exists {
		return d, nil
	}

	data, err := afero.ReadFile(fs, stateFile)
	if err != nil {
		return nil, errors.Wrap(model.ErrConfig, "dryrun state: "+err.Error())
	}

	state := &dryRunState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, errors.Wrap(model.ErrParse, "dryrun state: "+err.Error())
	}

	d.state = mergeDryRunState(defaultDryRunState(configServerClass, dataWriterClass), state)

	return d, nil
}

func defaultDryRunState(configServerClass, dataWriterClass string) *dryRunState {
	return &dryRunState{
		Components:  map[string]string{},
		DataSources: map[string]string{},
		Mandatory:   []string{},
		Exported: map[string][]string{
			configServerClass: {DryRunConfigServer},
			dataWriterClass:   {DryRunDataWriter},
		},
		Attributes: map[string]map[string]any{},
		Writers: map[string]*dryRunWriter{
			DryRunDataWriter: {State: StateOn},
		},
		Servers: map[string]*dryRunConfigBase{
			DryRunConfigServer: {},
		},
	}
}

func mergeDryRunState(base, loaded *dryRunState) *dryRunState {
	if loaded.Components != nil {
		base.Components = loaded.Components
	}

	if loaded.DataSources != nil {
		base.DataSources = loaded.DataSources
	}

	if loaded.Mandatory != nil {
		base.Mandatory = loaded.Mandatory
	}

	for k, v := range loaded.Exported {
		base.Exported[k] = v
	}

	for k, v := range loaded.Attributes {
		base.Attributes[k] = v
	}

	for k, v := range loaded.Writers {
		base.Writers[k] = v
	}

	for k, v := range loaded.Servers {
		base.Servers[k] = v
	}

	return base
}

// AddDevice registers a plain device exposing the given attribute values.
func (d *DryRun) AddDevice(name string, attributes map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.Attributes[name] = attributes
}

// Export registers device names as exported servers of a class.
func (d *DryRun) Export(class string, devices ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.Exported[class] = append(d.state.Exported[class], devices...)
	for _, dev := range devices {
		if strings.Contains(strings.ToLower(class), "writer") {
			if _, ok := d.state.Writers[dev]; !ok {
				d.state.Writers[dev] = &dryRunWriter{State: StateOn}
			}

			continue
		}

		if _, ok := d.state.Servers[dev]; !ok {
			d.state.Servers[dev] = &dryRunConfigBase{}
		}
	}
}

func (d *DryRun) Device(name string) (Proxy, error) {
	dn, err := ParseDeviceName(name, d.host, d.port)
	if err != nil {
		return nil, err
	}

	return &dryRunProxy{d: d, name: dn.Device}, nil
}

func (d *DryRun) DatabaseHost() string {
	return fmt.Sprintf("%s:%d", d.host, d.port)
}

// OnHost returns the same simulation, there is a single simulated database.
func (d *DryRun) OnHost(_ string, _ int) Connector {
	return d
}

// save persists the state, called with the lock held.
func (d *DryRun) save() error {
	if d.stateFile == "" {
		return nil
	}

	data, err := json.MarshalIndent(d.state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "dryrun state marshal")
	}

	return afero.WriteFile(d.fs, d.stateFile, data, 0o644)
}

type dryRunProxy struct {
	d    *DryRun
	name string
}

func (p *dryRunProxy) Name() string {
	return p.name
}

func (p *dryRunProxy) State(_ context.Context) (State, error) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	if w, ok := p.d.state.Writers[p.name]; ok {
		return w.State, nil
	}

	if p.known() {
		return StateOn, nil
	}

	return StateUnknown, errors.Wrap(model.ErrConnection, errDryRunUnknownDevice.Error()+": "+p.name)
}

// known is called with the lock held.
func (p *dryRunProxy) known() bool {
	if p.name == DatabaseDevice {
		return true
	}

	if _, ok := p.d.state.Servers[p.name]; ok {
		return true
	}

	if _, ok := p.d.state.Writers[p.name]; ok {
		return true
	}

	_, ok := p.d.state.Attributes[p.name]

	return ok
}

func (p *dryRunProxy) Command(_ context.Context, command string, in, out any) error {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	var (
		result any
		err    error
	)

	switch {
	case p.name == DatabaseDevice:
		result, err = p.databaseCommand(command, in)
	case p.d.state.Servers[p.name] != nil:
		result, err = p.configCommand(p.d.state.Servers[p.name], command, in)
	case p.d.state.Writers[p.name] != nil:
		result, err = p.writerCommand(p.d.state.Writers[p.name], command, in)
	default:
		return errors.Wrap(model.ErrConnection, errDryRunUnknownDevice.Error()+": "+p.name)
	}

	if err != nil {
		return errors.Wrap(model.ErrRemoteOperation, p.name+"."+command+": "+err.Error())
	}

	if err := p.d.save(); err != nil {
		return errors.Wrap(model.ErrRemoteOperation, err.Error())
	}

	return convert(result, out)
}

func (p *dryRunProxy) ReadAttribute(_ context.Context, attribute string, out any) error {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	var value any

	switch {
	case p.d.state.Servers[p.name] != nil && attribute == "XMLString":
		value = p.d.state.Servers[p.name].XMLString
	case p.d.state.Writers[p.name] != nil:
		w := p.d.state.Writers[p.name]
		switch attribute {
		case "FileName":
			value = w.FileName
		case "TheJSONRecord":
			value = w.JSONRecord
		case "TheXMLSettings":
			value = w.XMLSetting
		default:
			return errors.Wrap(model.ErrRemoteOperation, errDryRunUnknownAttribute.Error()+": "+attribute)
		}
	default:
		attrs, ok := p.d.state.Attributes[p.name]
		if !ok {
			return errors.Wrap(model.ErrConnection, errDryRunUnknownDevice.Error()+": "+p.name)
		}

		v, ok := attrs[attribute]
		if !ok {
			return errors.Wrap(model.ErrRemoteOperation, errDryRunUnknownAttribute.Error()+": "+attribute)
		}

		value = v
	}

	return convert(value, out)
}

func (p *dryRunProxy) WriteAttribute(_ context.Context, attribute string, value any) error {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	str := ""
	if err := convert(value, &str); err != nil {
		return err
	}

	switch {
	case p.d.state.Servers[p.name] != nil && attribute == "XMLString":
		p.d.state.Servers[p.name].XMLString = str
	case p.d.state.Writers[p.name] != nil:
		w := p.d.state.Writers[p.name]
		switch attribute {
		case "FileName":
			w.FileName = str
		case "TheJSONRecord":
			w.JSONRecord = str
		case "TheXMLSettings":
			w.XMLSetting = str
		default:
			return errors.Wrap(model.ErrRemoteOperation, errDryRunUnknownAttribute.Error()+": "+attribute)
		}
	default:
		attrs, ok := p.d.state.Attributes[p.name]
		if !ok {
			return errors.Wrap(model.ErrConnection, errDryRunUnknownDevice.Error()+": "+p.name)
		}

		attrs[attribute] = value
	}

	return p.d.save()
}

func (p *dryRunProxy) AttributeNames(_ context.Context) ([]string, error) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	switch {
	case p.d.state.Servers[p.name] != nil:
		return []string{"XMLString", "State", "Status"}, nil
	case p.d.state.Writers[p.name] != nil:
		return []string{"FileName", "TheJSONRecord", "TheXMLSettings", "State", "Status"}, nil
	}

	attrs, ok := p.d.state.Attributes[p.name]
	if !ok {
		return nil, errors.Wrap(model.ErrConnection, errDryRunUnknownDevice.Error()+": "+p.name)
	}

	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}

	sort.Strings(names)

	return names, nil
}

func (p *dryRunProxy) databaseCommand(command string, in any) (any, error) {
	switch command {
	case "DbGetExportdDeviceListForClass":
		class := ""
		if err := convert(in, &class); err != nil {
			return nil, err
		}

		devices := p.d.state.Exported[class]
		if devices == nil {
			devices = []string{}
		}

		return devices, nil
	default:
		return nil, errDryRunUnknownCommand
	}
}

// nolint:gocyclo // command dispatch is cyclomatic
func (p *dryRunProxy) configCommand(srv *dryRunConfigBase, command string, in any) (any, error) {
	s := p.d.state

	if command == "Open" {
		srv.Opened = true
		return nil, nil
	}

	if !srv.Opened {
		return nil, errDryRunClosed
	}

	names := []string{}
	name := ""

	switch command {
	case "Components", "DataSources", "SetMandatoryComponents", "UnsetMandatoryComponents",
		"CreateConfiguration", "DependentComponents":
		if err := convert(in, &names); err != nil {
			return nil, err
		}
	case "ComponentDataSources", "StoreComponent", "StoreDataSource", "DeleteComponent", "DeleteDataSource":
		if err := convert(in, &name); err != nil {
			return nil, err
		}
	}

	switch command {
	case "Close":
		srv.Opened = false
		return nil, nil
	case "AvailableComponents":
		return sortedKeys(s.Components), nil
	case "AvailableDataSources":
		return sortedKeys(s.DataSources), nil
	case "MandatoryComponents":
		return slices.Clone(s.Mandatory), nil
	case "Components":
		return lookup(s.Components, names, "component")
	case "DataSources":
		return lookup(s.DataSources, names, "datasource")
	case "ComponentDataSources":
		xml, ok := s.Components[name]
		if !ok {
			return nil, errors.New("component not stored: " + name)
		}

		return descriptor.DataSourceRefs(xml), nil
	case "DependentComponents":
		return names, nil
	case "StoreComponent":
		if name == "" {
			return nil, errors.New("empty component name")
		}

		s.Components[name] = srv.XMLString
	case "StoreDataSource":
		if name == "" {
			return nil, errors.New("empty datasource name")
		}

		s.DataSources[name] = srv.XMLString
	case "DeleteComponent":
		delete(s.Components, name)
	case "DeleteDataSource":
		delete(s.DataSources, name)
	case "SetMandatoryComponents":
		for _, n := range names {
			if _, ok := s.Components[n]; !ok {
				return nil, errors.New("component not stored: " + n)
			}

			if !slices.Contains(s.Mandatory, n) {
				s.Mandatory = append(s.Mandatory, n)
			}
		}
	case "UnsetMandatoryComponents":
		s.Mandatory = slices.DeleteFunc(s.Mandatory, func(n string) bool {
			return slices.Contains(names, n)
		})
	case "CreateConfiguration":
		all := slices.Clone(s.Mandatory)
		for _, n := range names {
			if !slices.Contains(all, n) {
				all = append(all, n)
			}
		}

		xmls, err := lookup(s.Components, all, "component")
		if err != nil {
			return nil, err
		}

		merged, err := descriptor.Merge(xmls)
		if err != nil {
			return nil, err
		}

		srv.XMLString = merged
	default:
		return nil, errDryRunUnknownCommand
	}

	return nil, nil
}

func (p *dryRunProxy) writerCommand(w *dryRunWriter, command string, in any) (any, error) {
	switch command {
	case "Init":
		*w = dryRunWriter{State: StateOn}
	case "OpenFile":
		if w.State != StateOn {
			return nil, errors.New("cannot open file in state " + string(w.State))
		}

		if w.FileName == "" {
			return nil, errors.New("file name not set")
		}

		w.State = StateOpen
	case "OpenEntry":
		if w.State != StateOpen {
			return nil, errors.New("cannot open entry in state " + string(w.State))
		}

		if w.XMLSetting == "" {
			return nil, errors.New("xml settings not set")
		}

		w.State = StateExtract
		w.Entries++
	case "Record":
		if w.State != StateExtract {
			return nil, errors.New("cannot record in state " + string(w.State))
		}

		record := ""
		if err := convert(in, &record); err != nil {
			return nil, err
		}

		w.Records = append(w.Records, record)
	case "CloseEntry":
		if w.State != StateExtract {
			return nil, errors.New("cannot close entry in state " + string(w.State))
		}

		w.State = StateOpen
	case "CloseFile":
		if w.State != StateOpen {
			return nil, errors.New("cannot close file in state " + string(w.State))
		}

		w.State = StateOn
	default:
		return nil, errDryRunUnknownCommand
	}

	return nil, nil
}

func lookup(store map[string]string, names []string, what string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		xml, ok := store[n]
		if !ok {
			return nil, errors.New(what + " not stored: " + n)
		}

		out = append(out, xml)
	}

	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// convert copies a JSON compatible value into out, as a remote call would.
func convert(value, out any) error {
	if out == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(model.ErrWrongParameter, err.Error())
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(model.ErrWrongParameter, err.Error())
	}

	return nil
}
