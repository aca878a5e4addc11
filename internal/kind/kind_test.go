package kind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommandRoundTrip(t *testing.T) {
	for _, c := range ConfigCommands() {
		got, err := ConfigCommandFromString(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ConfigCommandFromString("SHOW")
	require.NoError(t, err)
	assert.Equal(t, Show, got)

	_, err = ConfigCommandFromString("delete")
	assert.ErrorIs(t, err, ErrUnknownCommandKind)
	assert.Equal(t, "unknown", ConfigCommand(42).String())
}

func TestWriterCommandRoundTrip(t *testing.T) {
	for _, c := range WriterCommands() {
		got, err := WriterCommandFromString(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := WriterCommandFromString("abort")
	assert.ErrorIs(t, err, ErrUnknownCommandKind)
}

func TestMinArgs(t *testing.T) {
	assert.Equal(t, 0, List.MinArgs())
	assert.Equal(t, 1, Record.MinArgs())
	assert.Equal(t, 1, OpenFile.MinArgs())
	assert.Equal(t, 0, CloseFile.MinArgs())
}
