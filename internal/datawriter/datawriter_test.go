package datawriter

import (
	"context"
	"testing"

	"github.com/nexdatas/nxstools/internal/kind"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	stateFile = "/tmp/dryrun.json"
	entryXML  = `<definition><group type="NXentry" name="scan"/></definition>`
)

func newTestWriter(t *testing.T) (afero.Fs, *tango.DryRun, *Client) {
	t.Helper()

	fs := afero.NewMemMapFs()
	d, err := tango.NewDryRun(fs, stateFile, "NXSConfigServer", "NXSDataWriter")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	c, err := Open(context.Background(), d, tango.DryRunDataWriter, tango.ReadyOptions{MaxAttempts: 1}, logger.WithField("component", "test"))
	require.NoError(t, err)

	return fs, d, c
}

func writerState(t *testing.T, fs afero.Fs) gjson.Result {
	t.Helper()

	data, err := afero.ReadFile(fs, stateFile)
	require.NoError(t, err)

	return gjson.GetBytes(data, "writers."+gjson.Escape(tango.DryRunDataWriter))
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	fs, _, c := newTestWriter(t)

	steps := []struct {
		cmd   kind.WriterCommand
		args  []string
		state tango.State
	}{
		{kind.OpenFile, []string{"/tmp/scan_001.h5"}, tango.StateOpen},
		{kind.SetData, []string{` {"data": {"title": "test"}} `}, tango.StateOpen},
		{kind.OpenEntry, []string{entryXML}, tango.StateExtract},
		{kind.WriteRecord, []string{`{"data": {"exp_c01": 1}}`}, tango.StateExtract},
		{kind.WriteRecord, []string{`{"data": {"exp_c01": 2}}`, "ignored"}, tango.StateExtract},
		{kind.CloseEntry, nil, tango.StateOpen},
		{kind.CloseFile, nil, tango.StateOn},
	}

	for _, s := range steps {
		require.NoError(t, Perform(ctx, c, s.cmd, s.args), s.cmd.String())

		state, err := c.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, s.state, state, s.cmd.String())
	}

	w := writerState(t, fs)
	assert.Equal(t, "/tmp/scan_001.h5", w.Get("file_name").String())
	assert.Equal(t, `{"data": {"title": "test"}}`, w.Get("json_record").String())
	assert.Equal(t, entryXML, w.Get("xml_settings").String())
	assert.Equal(t, int64(1), w.Get("entries").Int())

	records := w.Get("records").Array()
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), gjson.Get(records[1].String(), "data.exp_c01").Int())
}

func TestPerformArguments(t *testing.T) {
	ctx := context.Background()
	_, _, c := newTestWriter(t)

	for _, cmd := range []kind.WriterCommand{kind.OpenFile, kind.SetData, kind.OpenEntry, kind.WriteRecord} {
		err := Perform(ctx, c, cmd, nil)
		assert.ErrorIs(t, err, model.ErrMissingParameter, cmd.String())
	}

	err := Perform(ctx, c, kind.WriterCommand(42), nil)
	assert.ErrorIs(t, err, model.ErrInvalidAction)
}

func TestPerformOutOfOrder(t *testing.T) {
	ctx := context.Background()
	_, _, c := newTestWriter(t)

	err := Perform(ctx, c, kind.CloseEntry, nil)
	assert.ErrorIs(t, err, model.ErrRemoteOperation)

	require.NoError(t, Perform(ctx, c, kind.OpenFile, []string{"/tmp/a.h5"}))

	err = Perform(ctx, c, kind.WriteRecord, []string{`{"data": {}}`})
	assert.ErrorIs(t, err, model.ErrRemoteOperation)
}

func TestValidateJSON(t *testing.T) {
	assert.NoError(t, ValidateJSON(`{"data": {"a": [1, 2]}}`))
	assert.ErrorIs(t, ValidateJSON(`{"data": `), model.ErrWrongParameter)
	assert.ErrorIs(t, ValidateJSON(`[1, 2]`), model.ErrWrongParameter)
	assert.ErrorIs(t, ValidateJSON(""), model.ErrWrongParameter)
}

func TestServers(t *testing.T) {
	_, d, _ := newTestWriter(t)
	d.Export("NXSDataWriter", "p09/tdw/exp.02")

	got, err := Servers(context.Background(), d, "NXSDataWriter")
	require.NoError(t, err)
	assert.Equal(t, tango.DryRunDataWriter+"\np09/tdw/exp.02", got)
}
