package catalog

import (
	"testing"

	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMotorModulesArePositionPairs(t *testing.T) {
	for _, name := range MotorModules() {
		pair, ok := Attributes(name)
		require.True(t, ok, name)
		assert.Equal(t, AttributePair{Public: "Position", Source: "Position"}, pair, name)
		assert.True(t, IsMotor(name))
	}

	assert.Len(t, MotorModules(), 12)
}

func TestCounterModules(t *testing.T) {
	tests := []struct {
		module string
		want   AttributePair
	}{
		{"sis3820", AttributePair{"Value", "Counts"}},
		{"dgg2", AttributePair{"Value", "SampleTime"}},
		{"onedroi", AttributePair{"Value", ""}},
		{"mhzdaqp01", AttributePair{"Value", ""}},
		{"tip830", AttributePair{"Value", "Counts"}},
		{"mca_xia", AttributePair{"Value", ""}},
		{"SIS3610", AttributePair{"Value", "Value"}},
		{"tip551", AttributePair{"Value", "Voltage"}},
	}

	for _, tc := range tests {
		t.Run(tc.module, func(t *testing.T) {
			pair, ok := Attributes(tc.module)
			require.True(t, ok)
			assert.Equal(t, tc.want, pair)
		})
	}

	assert.True(t, IsCounter("VFCADC"))
	assert.True(t, IsIORegister("sis3610"))
	assert.True(t, Is2D("eigerdectris"))
	assert.False(t, Is2D("lambda2m"))
}

func TestLookup(t *testing.T) {
	m, err := Lookup("EigerDectris")
	require.NoError(t, err)
	assert.Equal(t, "eigerdectris", m.Name)
	assert.Nil(t, m.Pair)
	assert.Len(t, m.MultiAttributes, 16)
	assert.Equal(t, "eigerdectris.xml", m.TemplateFiles[0])
	assert.True(t, m.HasComponent())

	m, err = Lookup("pilatus300k")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"pilatus.xml",
		"pilatus_postrun.ds.xml",
		"pilatus300k_description.ds.xml",
		"pilatus_filestartnum_cb.ds.xml",
	}, m.TemplateFiles)

	m, err = Lookup("oms58")
	require.NoError(t, err)
	assert.False(t, m.HasComponent())
	assert.Equal(t, "Position", m.Pair.Source)

	_, err = Lookup("toaster")
	assert.ErrorIs(t, err, model.ErrUnknownModule)
}

func TestLookupReturnsCopies(t *testing.T) {
	m, err := Lookup("lambda")
	require.NoError(t, err)
	m.MultiAttributes[0] = "Broken"
	m.TemplateFiles[0] = "broken.xml"
	m.Pair = nil

	attrs, ok := MultiAttributes("lambda")
	require.True(t, ok)
	assert.Equal(t, "TriggerMode", attrs[0])

	files, ok := TemplateFiles("lambda")
	require.True(t, ok)
	assert.Equal(t, "lambda.xml", files[0])

	motors := MotorModules()
	motors[0] = "broken"
	assert.Equal(t, "absbox", MotorModules()[0])

	fields := Fields("pilatus")
	delete(fields, "ExposureTime")
	assert.Equal(t, descriptor.StrategyStep, Field("pilatus", "ExposureTime").Strategy)
}

func TestField(t *testing.T) {
	assert.Equal(t, FieldSpec{descriptor.StrategyStep, "NX_FLOAT64", "s"}, Field("eigerdectris", "CountTime"))
	assert.Equal(t, FieldSpec{descriptor.StrategyFinal, "NX_FLOAT64", "Angstrom"}, Field("eigerdectris", "wavelength"))
	assert.Equal(t, FieldSpec{descriptor.StrategyStep, "NX_FLOAT64", ""}, Field("oms58", "Position"))
	assert.Equal(t, DefaultFieldSpec, Field("pilatus", "Unknown"))
	assert.Equal(t, DefaultFieldSpec, Field("toaster", "Value"))
}

func TestComponentModules(t *testing.T) {
	mods := ComponentModules()
	assert.Contains(t, mods, "eigerdectris")
	assert.Contains(t, mods, "lambda2m")
	assert.Contains(t, mods, "mythen")
	assert.NotContains(t, mods, "oms58")
	assert.IsIncreasing(t, mods)
}
