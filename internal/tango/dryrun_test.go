package tango

import (
	"context"
	"testing"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testComponent = `<?xml version="1.0" ?>
<definition>
  <group type="NXentry" name="scan">
    <field name="energy">$datasources.mono_energy</field>
  </group>
</definition>
`
	testDataSource = `<?xml version="1.0" ?>
<definition>
  <datasource type="CLIENT" name="mono_energy">
    <record name="mono_energy"/>
  </datasource>
</definition>
`
)

func newTestDryRun(t *testing.T, fs afero.Fs, stateFile string) *DryRun {
	t.Helper()

	d, err := NewDryRun(fs, stateFile, "NXSConfigServer", "NXSDataWriter")
	require.NoError(t, err)

	return d
}

func TestDryRunDatabase(t *testing.T) {
	d := newTestDryRun(t, afero.NewMemMapFs(), "")
	d.Export("NXSConfigServer", "p09/nxs/cs2")

	devices, err := ExportedDevices(context.Background(), d, "NXSConfigServer")
	require.NoError(t, err)
	assert.Equal(t, []string{DryRunConfigServer, "p09/nxs/cs2"}, devices)

	_, err = FindServer(context.Background(), d, "NXSConfigServer")
	assert.ErrorIs(t, err, model.ErrWrongParameter)

	server, err := FindServer(context.Background(), d, "NXSDataWriter")
	require.NoError(t, err)
	assert.Equal(t, DryRunDataWriter, server)

	_, err = FindServer(context.Background(), d, "Pool")
	assert.ErrorIs(t, err, model.ErrWrongParameter)
}

func TestDryRunConfigServer(t *testing.T) {
	ctx := context.Background()
	d := newTestDryRun(t, afero.NewMemMapFs(), "")

	cs, err := d.Device(DryRunConfigServer)
	require.NoError(t, err)

	// commands fail before Open
	err = cs.Command(ctx, "AvailableComponents", nil, &[]string{})
	assert.ErrorIs(t, err, model.ErrRemoteOperation)

	require.NoError(t, cs.Command(ctx, "Open", nil, nil))

	require.NoError(t, cs.WriteAttribute(ctx, "XMLString", testDataSource))
	require.NoError(t, cs.Command(ctx, "StoreDataSource", "mono_energy", nil))
	require.NoError(t, cs.WriteAttribute(ctx, "XMLString", testComponent))
	require.NoError(t, cs.Command(ctx, "StoreComponent", "mono", nil))

	names := []string{}
	require.NoError(t, cs.Command(ctx, "AvailableComponents", nil, &names))
	assert.Equal(t, []string{"mono"}, names)

	require.NoError(t, cs.Command(ctx, "ComponentDataSources", "mono", &names))
	assert.Equal(t, []string{"mono_energy"}, names)

	xmls := []string{}
	require.NoError(t, cs.Command(ctx, "DataSources", []string{"mono_energy"}, &xmls))
	assert.Equal(t, []string{testDataSource}, xmls)

	err = cs.Command(ctx, "Components", []string{"missing"}, &xmls)
	assert.ErrorIs(t, err, model.ErrRemoteOperation)

	require.NoError(t, cs.Command(ctx, "SetMandatoryComponents", []string{"mono"}, nil))
	require.NoError(t, cs.Command(ctx, "MandatoryComponents", nil, &names))
	assert.Equal(t, []string{"mono"}, names)

	require.NoError(t, cs.Command(ctx, "CreateConfiguration", []string{}, nil))

	merged := ""
	require.NoError(t, cs.ReadAttribute(ctx, "XMLString", &merged))
	assert.Contains(t, merged, "$datasources.mono_energy")
}

func TestDryRunWriterLifecycle(t *testing.T) {
	ctx := context.Background()
	d := newTestDryRun(t, afero.NewMemMapFs(), "")

	dw, err := d.Device(DryRunDataWriter)
	require.NoError(t, err)

	require.NoError(t, dw.Command(ctx, "Init", nil, nil))

	// no file name yet
	assert.ErrorIs(t, dw.Command(ctx, "OpenFile", nil, nil), model.ErrRemoteOperation)

	require.NoError(t, dw.WriteAttribute(ctx, "FileName", "/tmp/scan_001.nxs"))
	require.NoError(t, dw.Command(ctx, "OpenFile", nil, nil))

	state, err := dw.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)

	require.NoError(t, dw.WriteAttribute(ctx, "TheXMLSettings", testComponent))
	require.NoError(t, dw.Command(ctx, "OpenEntry", nil, nil))
	require.NoError(t, dw.Command(ctx, "Record", `{"data":{"mono_energy":1.2}}`, nil))
	require.NoError(t, dw.Command(ctx, "CloseEntry", nil, nil))

	assert.ErrorIs(t, dw.Command(ctx, "Record", "{}", nil), model.ErrRemoteOperation)

	require.NoError(t, dw.Command(ctx, "CloseFile", nil, nil))

	state, err = dw.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOn, state)
}

func TestDryRunPersistence(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	d := newTestDryRun(t, fs, "/state.json")
	cs, err := d.Device(DryRunConfigServer)
	require.NoError(t, err)
	require.NoError(t, cs.Command(ctx, "Open", nil, nil))
	require.NoError(t, cs.WriteAttribute(ctx, "XMLString", testDataSource))
	require.NoError(t, cs.Command(ctx, "StoreDataSource", "mono_energy", nil))

	reloaded := newTestDryRun(t, fs, "/state.json")
	cs, err = reloaded.Device(DryRunConfigServer)
	require.NoError(t, err)
	require.NoError(t, cs.Command(ctx, "Open", nil, nil))

	names := []string{}
	require.NoError(t, cs.Command(ctx, "AvailableDataSources", nil, &names))
	assert.Equal(t, []string{"mono_energy"}, names)
}

func TestDryRunPlainDevice(t *testing.T) {
	ctx := context.Background()
	d := newTestDryRun(t, afero.NewMemMapFs(), "")
	d.AddDevice("p09/motor/exp.01", map[string]any{"Position": 2.5, "Velocity": 1.0})

	conn := Instrument(d)
	mot, err := conn.Device("p09/motor/exp.01")
	require.NoError(t, err)

	names, err := mot.AttributeNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Position", "Velocity"}, names)

	var pos float64
	require.NoError(t, mot.ReadAttribute(ctx, "Position", &pos))
	assert.InDelta(t, 2.5, pos, 0.0001)

	missing, err := conn.Device("p09/motor/exp.99")
	require.NoError(t, err)

	_, err = missing.State(ctx)
	assert.ErrorIs(t, err, model.ErrConnection)
}
