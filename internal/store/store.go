// Package store writes the generated documents to their destination:
// a directory, the configuration server or standard output.
package store

import (
	"context"
	"io"

	"github.com/nexdatas/nxstools/internal/configserver"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/naming"
	"github.com/spf13/afero"
)

type Repository interface {
	// Name of the destination kind, used as metrics label.
	Name() string
	// Existing returns the names of the documents of kind already stored.
	Existing(ctx context.Context, kind model.DocumentKind) ([]string, error)
	// Store writes one document.
	Store(ctx context.Context, kind model.DocumentKind, name, xml string) error
}

// Mandatory is implemented by repositories which can mark components mandatory.
type Mandatory interface {
	SetMandatory(ctx context.Context, names []string) error
}

// Options select and configure a Repository.
type Options struct {
	// Server selects the configuration server.
	Server configserver.Server
	// Directory selects the filesystem, when Server is nil.
	Directory  string
	FilePrefix string
	Fs         afero.Fs
	// Out receives the documents when neither Server nor Directory is set.
	Out       io.Writer
	Overwrite bool
}

// NewRepository returns the repository selected by opts.
func NewRepository(opts *Options) Repository {
	switch {
	case opts.Server != nil:
		return NewRemoteStore(opts.Server, opts.Overwrite)
	case opts.Directory != "":
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}

		return NewFileStore(fs, opts.Directory, opts.FilePrefix, opts.Overwrite)
	default:
		return NewPrintStore(opts.Out)
	}
}

// Check fails with a collision error when any of names of kind is already
// stored and overwrite is off.
func Check(ctx context.Context, repo Repository, kind model.DocumentKind, names []string, overwrite bool) error {
	if overwrite || len(names) == 0 {
		return nil
	}

	existing, err := repo.Existing(ctx, kind)
	if err != nil {
		return err
	}

	return naming.Check(existing, names, overwrite, kind)
}
