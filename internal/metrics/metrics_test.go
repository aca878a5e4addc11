package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStored(t *testing.T) {
	before := testutil.ToFloat64(documentsStored.WithLabelValues("datasource", "file"))

	DocumentStored("datasource", "file")

	after := testutil.ToFloat64(documentsStored.WithLabelValues("datasource", "file"))
	assert.InDelta(t, 1.0, after-before, 0.0001)
}

func TestRemoteCall(t *testing.T) {
	before := testutil.ToFloat64(remoteCalls.WithLabelValues("Open", StatusError))

	RemoteCall("Open", time.Now(), errors.New("boom"))

	after := testutil.ToFloat64(remoteCalls.WithLabelValues("Open", StatusError))
	assert.InDelta(t, 1.0, after-before, 0.0001)
}

func TestWriteTextfile(t *testing.T) {
	DocumentStored("component", "print")

	path := filepath.Join(t.TempDir(), "nxstools.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "nxstools_documents_stored_total")

	assert.NoError(t, WriteTextfile(""))
}
