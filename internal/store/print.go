package store

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/nexdatas/nxstools/internal/metrics"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
)

const printStoreName = "print"

// PrintStore writes the documents to standard output and stores nothing.
type PrintStore struct {
	out io.Writer
}

func NewPrintStore(out io.Writer) *PrintStore {
	if out == nil {
		out = os.Stdout
	}

	return &PrintStore{out: out}
}

func (s *PrintStore) Name() string {
	return printStoreName
}

func (s *PrintStore) Existing(_ context.Context, _ model.DocumentKind) ([]string, error) {
	return []string{}, nil
}

func (s *PrintStore) Store(_ context.Context, kind model.DocumentKind, _, xml string) error {
	if !strings.HasSuffix(xml, "\n") {
		xml += "\n"
	}

	if _, err := io.WriteString(s.out, xml); err != nil {
		return errors.Wrap(err, "print "+string(kind))
	}

	metrics.DocumentStored(string(kind), printStoreName)

	return nil
}
