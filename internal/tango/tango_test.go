package tango

import (
	"testing"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want DeviceName
	}{
		{"plain", "p09/eigerdectris/exp.01", DeviceName{"haso000", 10000, "p09/eigerdectris/exp.01"}},
		{"with host", "haso111:20000/p09/mot/exp.01", DeviceName{"haso111", 20000, "p09/mot/exp.01"}},
		{"tango scheme", "tango://haso111:20000/p09/mot/exp.01", DeviceName{"haso111", 20000, "p09/mot/exp.01"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDeviceName(tc.in, "haso000", 10000)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDeviceNameErrors(t *testing.T) {
	for _, in := range []string{"", "a/b", "a//c", "host:xx/a/b/c", "a/b/c/d/e"} {
		_, err := ParseDeviceName(in, "h", 1)
		assert.ErrorIs(t, err, model.ErrWrongParameter, in)
	}
}

func TestShortHost(t *testing.T) {
	assert.Equal(t, "haso000", ShortHost("haso000.desy.de"))
	assert.Equal(t, "haso000", ShortHost("haso000"))
	assert.Equal(t, "10.0.0.1", ShortHost("10.0.0.1"))
}
