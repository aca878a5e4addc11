package inventory

import (
	"strings"
	"testing"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eigerOnline = `<?xml version='1.0' encoding='utf8'?>
<hw>
<device>
 <name>myeigerdectris</name>
 <type>type_tango</type>
 <module>eigerdectris</module>
 <device>p09/eigerdectris/exp.01</device>
 <control>tango</control>
 <hostname>haso000:10000</hostname>
 <controller>oms58_exp</controller>
 <channel>1</channel>
 <rootdevicename>p09/motor/exp</rootdevicename>
</device>
<device>
 <module>oms58</module>
</device>
<device>
 <name> exp_mot01 </name>
 <type>stepping_motor</type>
 <module>oms58</module>
 <device>p09/motor/exp.01</device>
 <control>tango</control>
 <hostname>haso000</hostname>
 <sardananame>Motor &amp; Co</sardananame>
</device>
</hw>
`

func TestParse(t *testing.T) {
	devices, err := Parse(strings.NewReader(eigerOnline))
	require.NoError(t, err)
	require.Len(t, devices, 2)

	eiger := devices[0]
	assert.Equal(t, &Device{
		Name:           "myeigerdectris",
		Type:           "type_tango",
		Module:         "eigerdectris",
		TangoDevice:    "p09/eigerdectris/exp.01",
		Control:        "tango",
		Hostname:       "haso000:10000",
		Controller:     "oms58_exp",
		Channel:        "1",
		RootDeviceName: "p09/motor/exp",
		Extra:          map[string]string{},
	}, eiger)

	host, port := eiger.HostPort()
	assert.Equal(t, "haso000", host)
	assert.Equal(t, 10000, port)

	motor := devices[1]
	assert.Equal(t, "exp_mot01", motor.Name)
	assert.Equal(t, "Motor & Co", motor.Extra["sardananame"])

	host, port = motor.HostPort()
	assert.Equal(t, "haso000", host)
	assert.Equal(t, DefaultPort, port)
}

func TestParseCharset(t *testing.T) {
	text := "<?xml version='1.0' encoding='latin1'?>\n<hw><device><name>caf\xe9</name></device></hw>"

	devices, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "café", devices[0].Name)
}

func TestParseSkipsBlankNames(t *testing.T) {
	devices, err := Parse(strings.NewReader("<hw><device><name>  </name><module>eigerdectris</module><device>x/y/z</device></device>" +
		"<device><name>exp_c01</name><module>counter_tango</module></device></hw>"))
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "exp_c01", devices[0].Name)
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{"", "<hw><device>", "<definition/>"} {
		_, err := Parse(strings.NewReader(text))
		assert.ErrorIs(t, err, model.ErrParse, text)
	}
}

func TestParseFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/online_dir/online.xml", []byte(eigerOnline), 0o644))

	devices, err := ParseFile(fs, "/online_dir/online.xml")
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	_, err = ParseFile(fs, "/missing.xml")
	assert.ErrorIs(t, err, model.ErrWrongParameter)
}

func TestCompare(t *testing.T) {
	first := []*Device{
		{Name: "Exp_Mot01", Module: "oms58", TangoDevice: "p09/motor/exp.01"},
		{Name: "exp_c01", Module: "sis3820"},
	}
	second := []*Device{
		{Name: "exp_mot01", Module: "oms58", TangoDevice: "p09/motor/exp.02"},
		{Name: "exp_adc01", Module: "tip551", Extra: map[string]string{"sardananame": "adc"}},
	}

	c := Compare(first, second, true)
	assert.False(t, c.Equal())
	assert.Equal(t, []string{"exp_c01"}, c.OnlyFirst)
	assert.Equal(t, []string{"exp_adc01"}, c.OnlySecond)
	assert.Equal(t, []Difference{
		{Device: "exp_mot01", Field: "device", First: "p09/motor/exp.01", Second: "p09/motor/exp.02"},
	}, c.Differences)

	c = Compare(first, second, false)
	assert.Equal(t, []string{"Exp_Mot01", "exp_c01"}, c.OnlyFirst)

	assert.True(t, Compare(first, first, true).Equal())
}
