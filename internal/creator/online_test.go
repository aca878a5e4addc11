package creator

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/inventory"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/store"
	"github.com/nexdatas/nxstools/internal/templates"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const online = `<?xml version='1.0' encoding='utf8'?>
<hw>
<device>
 <name>myeigerdectris</name>
 <type>type_tango</type>
 <module>eigerdectris</module>
 <device>p09/eigerdectris/exp.01</device>
 <control>tango</control>
 <hostname>haso000:10000</hostname>
</device>
<device>
 <name>exp_mot01</name>
 <type>stepping_motor</type>
 <module>oms58</module>
 <device>p09/motor/exp.01</device>
 <control>tango</control>
 <hostname>haso000</hostname>
</device>
<device>
 <name>EXP_MOT01</name>
 <type>stepping_motor</type>
 <module>oms58</module>
 <device>p09/motor/exp.02</device>
 <control>tango</control>
 <hostname>haso000</hostname>
</device>
<device>
 <name>exp_c01</name>
 <type>counter</type>
 <module>sis3820</module>
 <device>p09/counter/exp.01</device>
 <control>tango</control>
 <hostname>haso000:10000</hostname>
</device>
<device>
 <name>thing</name>
 <module>nosuchmodule</module>
 <device>p09/thing/exp.01</device>
</device>
</hw>
`

var eigerAttributes = []string{
	"autosummationenabled", "bitdepth", "counttime", "description",
	"energythreshold", "flatfieldenabled", "frametime", "humidity",
	"nbimages", "nbtriggers", "photonenergy", "ratecorrectionenabled",
	"readouttime", "temperature", "triggermode", "wavelength",
}

func devices(t *testing.T) []*inventory.Device {
	t.Helper()

	devs, err := inventory.Parse(strings.NewReader(online))
	require.NoError(t, err)

	return devs
}

func defaultPackage(t *testing.T) *templates.Package {
	t.Helper()

	p, err := templates.Default()
	require.NoError(t, err)

	return p
}

func parseDS(t *testing.T, docs []*Document, name string) *descriptor.DataSource {
	t.Helper()

	for _, d := range docs {
		if d.Kind == model.KindDataSource && d.Name == name {
			ds, err := descriptor.ParseDataSource(d.XML)
			require.NoError(t, err)

			return ds
		}
	}

	require.Failf(t, "datasource not generated", name)

	return nil
}

func TestOnlineDS(t *testing.T) {
	docs, err := NewOnlineDS(&OnlineDSOptions{Devices: devices(t)}, testLogger()).Documents(context.Background())
	require.NoError(t, err)

	// eiger attributes, one motor with its duplicate dropped, one counter
	assert.Len(t, docs, len(eigerAttributes)+2)

	mot := parseDS(t, docs, "exp_mot01")
	assert.Equal(t, descriptor.TypeTango, mot.Type)
	assert.Equal(t, "p09/motor/exp.01", mot.Device)
	assert.Equal(t, "Position", mot.Record)
	assert.Equal(t, descriptor.ClientGroup, mot.Group)
	assert.Equal(t, "haso000", mot.Hostname)
	assert.Equal(t, "10000", mot.Port)

	ct := parseDS(t, docs, "exp_c01")
	assert.Equal(t, descriptor.TypeTango, ct.Type)
	assert.Empty(t, ct.Group)

	eiger := parseDS(t, docs, "myeigerdectris_triggermode")
	assert.Equal(t, "TriggerMode", eiger.Record)
	assert.Equal(t, "myeigerdectris_", eiger.Group)

	docs, err = NewOnlineDS(&OnlineDSOptions{Devices: devices(t), NoClientLike: true, NoLower: true}, testLogger()).Documents(context.Background())
	require.NoError(t, err)

	assert.Empty(t, parseDS(t, docs, "exp_mot01").Group)
	assert.Equal(t, "p09/motor/exp.02", parseDS(t, docs, "EXP_MOT01").Device)
}

func TestOnlineDSDeviceWithoutName(t *testing.T) {
	blank := &inventory.Device{Module: "eigerdectris", TangoDevice: "x/y/z"}

	_, err := NewOnlineDS(&OnlineDSOptions{Devices: []*inventory.Device{blank}}, testLogger()).Documents(context.Background())
	assert.ErrorIs(t, err, model.ErrWrongParameter)
}

func TestOnlineDSOverwrites(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/out/exp_mot01.ds.xml", []byte("<definition/>"), 0o644))

	g := NewOnlineDS(&OnlineDSOptions{Devices: devices(t)}, testLogger())
	require.NoError(t, g.Create(ctx, store.NewFileStore(fs, "/out", "", true)))

	data, err := afero.ReadFile(fs, "/out/exp_mot01.ds.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), `record name="Position"`)
}

func TestOnlineDSPrint(t *testing.T) {
	buf := &bytes.Buffer{}
	g := NewOnlineDS(&OnlineDSOptions{Devices: devices(t)[1:2]}, testLogger())

	require.NoError(t, g.Create(context.Background(), store.NewPrintStore(buf)))
	assert.Contains(t, buf.String(), `<datasource type="TANGO" name="exp_mot01">`)
}

func TestOnlineCPComponents(t *testing.T) {
	g := NewOnlineCP(&OnlineCPOptions{Devices: devices(t)}, testLogger())
	assert.Equal(t, []string{"myeigerdectris"}, g.Components())
}

func TestOnlineCPEigerWithFilePrefix(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	repo := store.NewFileStore(fs, "/out", "ts_", true)

	g := NewOnlineCP(&OnlineCPOptions{
		Devices:   devices(t),
		Component: "myeigerdectris",
		Package:   defaultPackage(t),
	}, testLogger())
	require.NoError(t, g.Create(ctx, repo))

	infos, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)

	files := []string{}
	for _, fi := range infos {
		files = append(files, fi.Name())
	}

	dsNames := []string{}
	for _, a := range eigerAttributes {
		dsNames = append(dsNames, "myeigerdectris_"+a)
	}

	dsNames = append(dsNames, "myeigerdectris_description_cb", "myeigerdectris_stepindex", "myeigerdectris_triggermode_cb")

	want := []string{"ts_myeigerdectris.xml"}
	for _, n := range dsNames {
		want = append(want, "ts_"+n+".ds.xml")
	}

	sort.Strings(want)
	assert.Equal(t, want, files)
	assert.Len(t, files, 20)

	docs := []*Document{}
	for _, n := range dsNames {
		text, err := repo.Load(ctx, model.KindDataSource, n)
		require.NoError(t, err)

		ds, err := descriptor.ParseDataSource(text)
		require.NoError(t, err)
		assert.Equal(t, n, ds.Name)

		if ds.Type == descriptor.TypeTango {
			assert.Equal(t, "p09/eigerdectris/exp.01", ds.Device)
			assert.Equal(t, "myeigerdectris_", ds.Group)
			assert.Equal(t, "haso000", ds.Hostname)
			assert.Equal(t, "10000", ds.Port)
		}

		docs = append(docs, &Document{Kind: model.KindDataSource, Name: n, XML: text})
	}

	cp, err := repo.Load(ctx, model.KindComponent, "myeigerdectris")
	require.NoError(t, err)
	assert.NotContains(t, cp, "$var.name")
	assert.NotContains(t, cp, "$var.__")
	assert.Contains(t, cp, "$var.entryname#'scan'$var.serialno")
	assert.Contains(t, cp, `<group type="NXinstrument" name="instrument">`)

	reached := reachable(cp, docs)
	for _, n := range dsNames {
		assert.True(t, reached[n], n)
	}

	// fields added for the attributes no template uses
	assert.Contains(t, cp, "$datasources.myeigerdectris_humidity")
	assert.Equal(t, 1, strings.Count(cp, "$datasources.myeigerdectris_nbimages"))

	err = NewOnlineCP(&OnlineCPOptions{
		Devices:   devices(t),
		Component: "myeigerdectris",
		Package:   defaultPackage(t),
	}, testLogger()).Create(ctx, store.NewFileStore(fs, "/out", "ts_", false))
	assert.ErrorIs(t, err, model.ErrComponentExists)
}

func TestOnlineCPErrors(t *testing.T) {
	cases := []struct {
		component string
		err       error
	}{
		{"", model.ErrMissingParameter},
		{"nosuchdevice", model.ErrWrongParameter},
		{"exp_mot01", model.ErrUnknownModule},
		{"thing", model.ErrUnknownModule},
	}

	for _, tc := range cases {
		g := NewOnlineCP(&OnlineCPOptions{Devices: devices(t), Component: tc.component, Package: defaultPackage(t)}, testLogger())

		_, err := g.Documents(context.Background())
		assert.ErrorIs(t, err, tc.err, tc.component)
	}
}

func TestOnlineCPWithoutTemplates(t *testing.T) {
	devs := []*inventory.Device{{
		Name:        "mythen01",
		Module:      "mythen",
		TangoDevice: "p09/mythen/exp.01",
		Hostname:    "haso000:10000",
	}}

	docs, err := NewOnlineCP(&OnlineCPOptions{Devices: devs, Component: "mythen01", EntryName: "entry"}, testLogger()).Documents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"mythen01"}, docNames(docs, model.KindComponent))

	cp := docs[len(docs)-1]
	assert.Contains(t, cp.XML, `<group type="NXdetector" name="mythen01">`)
	assert.Contains(t, cp.XML, "$var.entryname#'entry'$var.serialno")

	refs := descriptor.DataSourceRefs(cp.XML)
	assert.ElementsMatch(t, docNames(docs, model.KindDataSource), refs)
}

func TestCompare(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/a.xml", []byte(online), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/b.xml", []byte(strings.Replace(online, "p09/counter/exp.01", "p09/counter/exp.02", 1)), 0o644))

	c, err := Compare(fs, "/a.xml", "/a.xml", false)
	require.NoError(t, err)
	assert.True(t, c.Equal())

	c, err = Compare(fs, "/a.xml", "/b.xml", false)
	require.NoError(t, err)
	require.Len(t, c.Differences, 1)

	buf := &bytes.Buffer{}
	Report(buf, c, "/a.xml", "/b.xml")
	assert.Equal(t, "DIFFERENCES:\n  exp_c01.device: 'p09/counter/exp.01' != 'p09/counter/exp.02'\n", buf.String())

	_, err = Compare(fs, "/a.xml", "", false)
	assert.ErrorIs(t, err, model.ErrWrongParameter)
}
