package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/nexdatas/nxstools/internal/configserver"
	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const component = `<?xml version="1.0" encoding="utf-8"?>
<definition>
  <group type="NXentry" name="scan"/>
</definition>
`

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(afero.NewMemMapFs(), "/out", "", false)

	ds := descriptor.NewTangoDataSource("exp_mot01", "p09/motor/exp.01", "Position", "haso000", "10000")
	xml, err := ds.XML()
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, model.KindDataSource, ds.Name, xml))

	assert.Equal(t, "/out/exp_mot01.ds.xml", s.Path(model.KindDataSource, ds.Name))

	text, err := s.Load(ctx, model.KindDataSource, "exp_mot01")
	require.NoError(t, err)

	got, err := descriptor.ParseDataSource(text)
	require.NoError(t, err)
	assert.Equal(t, ds.Type, got.Type)
	assert.Equal(t, ds.Name, got.Name)
	assert.Equal(t, ds.RecordName(), got.RecordName())
}

func TestFileStoreCollision(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/out", "ts_", false)

	require.NoError(t, s.Store(ctx, model.KindComponent, "slit1", component))

	err := s.Store(ctx, model.KindComponent, "slit1", "<definition/>")
	assert.ErrorIs(t, err, model.ErrComponentExists)
	assert.True(t, model.IsCollision(err))

	data, err := afero.ReadFile(fs, "/out/ts_slit1.xml")
	require.NoError(t, err)
	assert.Equal(t, component, string(data))

	require.NoError(t, s.Store(ctx, model.KindDataSource, "slit1", "<definition/>"))
	err = s.Store(ctx, model.KindDataSource, "slit1", "<definition/>")
	assert.ErrorIs(t, err, model.ErrNameCollision)

	overwriting := NewFileStore(fs, "/out", "ts_", true)
	require.NoError(t, overwriting.Store(ctx, model.KindComponent, "slit1", "<definition/>"))

	text, err := overwriting.Load(ctx, model.KindComponent, "slit1")
	require.NoError(t, err)
	assert.Equal(t, "<definition/>", text)
}

func TestFileStoreExisting(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/out", "ts_", false)

	names, err := s.Existing(ctx, model.KindComponent)
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, f := range []string{"ts_a.xml", "ts_b.ds.xml", "ts_c.ds.xml", "other.xml"} {
		require.NoError(t, afero.WriteFile(fs, "/out/"+f, []byte("<definition/>"), 0o644))
	}

	names, err = s.Existing(ctx, model.KindComponent)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)

	names, err = s.Existing(ctx, model.KindDataSource)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, names)

	err = Check(ctx, s, model.KindDataSource, []string{"c", "d"}, false)
	assert.ErrorIs(t, err, model.ErrNameCollision)
	assert.NoError(t, Check(ctx, s, model.KindDataSource, []string{"c", "d"}, true))
}

func newRemote(t *testing.T, overwrite bool) (*configserver.Client, *RemoteStore) {
	t.Helper()

	d, err := tango.NewDryRun(afero.NewMemMapFs(), "", "NXSConfigServer", "NXSDataWriter")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	c, err := configserver.Open(context.Background(), d, tango.DryRunConfigServer, tango.ReadyOptions{MaxAttempts: 1}, logger.WithField("component", "test"))
	require.NoError(t, err)

	return c, NewRemoteStore(c, overwrite)
}

func TestRemoteStore(t *testing.T) {
	ctx := context.Background()
	c, s := newRemote(t, false)

	require.NoError(t, s.Store(ctx, model.KindComponent, "slit1", component))
	require.NoError(t, s.Store(ctx, model.KindDataSource, "exp_mot01", "<definition/>"))

	names, err := s.Existing(ctx, model.KindComponent)
	require.NoError(t, err)
	assert.Equal(t, []string{"slit1"}, names)

	err = s.Store(ctx, model.KindComponent, "slit1", "<definition/>")
	assert.ErrorIs(t, err, model.ErrComponentExists)

	err = s.Store(ctx, model.KindDataSource, "exp_mot01", "<definition/>")
	assert.ErrorIs(t, err, model.ErrNameCollision)

	_, overwriting := newRemote(t, true)
	overwriting.server = c
	require.NoError(t, overwriting.Store(ctx, model.KindComponent, "slit1", "<definition/>"))

	xmls, err := c.Components(ctx, []string{"slit1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"<definition/>"}, xmls)

	require.NoError(t, s.SetMandatory(ctx, []string{"slit1"}))

	mandatory, err := c.MandatoryComponents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"slit1"}, mandatory)
}

func TestPrintStore(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}
	s := NewPrintStore(buf)

	require.NoError(t, s.Store(ctx, model.KindComponent, "a", "<definition/>"))
	require.NoError(t, s.Store(ctx, model.KindDataSource, "b", component))
	assert.Equal(t, "<definition/>\n"+component, buf.String())

	names, err := s.Existing(ctx, model.KindComponent)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNewRepository(t *testing.T) {
	c, _ := newRemote(t, false)

	assert.Equal(t, remoteStoreName, NewRepository(&Options{Server: c, Directory: "/out"}).Name())
	assert.Equal(t, fileStoreName, NewRepository(&Options{Directory: "/out", Fs: afero.NewMemMapFs()}).Name())
	assert.Equal(t, printStoreName, NewRepository(&Options{}).Name())

	_, ok := NewRepository(&Options{Server: c}).(Mandatory)
	assert.True(t, ok)
}
