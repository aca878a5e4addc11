package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nexdatas/nxstools/internal/metrics"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/naming"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const fileStoreName = "file"

// FileStore keeps one file per document in a directory, named
// <prefix><name>.ds.xml for datasources and <prefix><name>.xml for components.
type FileStore struct {
	fs        afero.Fs
	dir       string
	prefix    string
	overwrite bool
}

func NewFileStore(fs afero.Fs, dir, prefix string, overwrite bool) *FileStore {
	return &FileStore{fs: fs, dir: dir, prefix: prefix, overwrite: overwrite}
}

func (s *FileStore) Name() string {
	return fileStoreName
}

// Path returns the file of a document.
func (s *FileStore) Path(kind model.DocumentKind, name string) string {
	return filepath.Join(s.dir, s.prefix+name+kind.FileSuffix())
}

// Existing lists the document names found in the directory, with the file
// prefix removed. Datasource files are not components.
func (s *FileStore) Existing(_ context.Context, kind model.DocumentKind) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(model.ErrWrongParameter, "read directory "+s.dir+": "+err.Error())
	}

	dsSuffix := model.KindDataSource.FileSuffix()
	suffix := kind.FileSuffix()
	names := []string{}

	for _, info := range infos {
		file := info.Name()
		if info.IsDir() || !strings.HasPrefix(file, s.prefix) || !strings.HasSuffix(file, suffix) {
			continue
		}

		if kind == model.KindComponent && strings.HasSuffix(file, dsSuffix) {
			continue
		}

		names = append(names, strings.TrimSuffix(strings.TrimPrefix(file, s.prefix), suffix))
	}

	sort.Strings(names)

	return names, nil
}

// Store writes the document, failing when the file exists and overwrite is off.
func (s *FileStore) Store(_ context.Context, kind model.DocumentKind, name, xml string) error {
	path := s.Path(kind, name)

	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return errors.Wrap(model.ErrWrongParameter, err.Error())
	}

	if exists {
		if err := naming.Check([]string{name}, []string{name}, s.overwrite, kind); err != nil {
			return err
		}
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(model.ErrWrongParameter, "create directory "+s.dir+": "+err.Error())
	}

	if err := afero.WriteFile(s.fs, path, []byte(xml), 0o644); err != nil {
		return errors.Wrap(model.ErrWrongParameter, "write "+path+": "+err.Error())
	}

	metrics.DocumentStored(string(kind), fileStoreName)

	return nil
}

// Load reads a stored document back.
func (s *FileStore) Load(_ context.Context, kind model.DocumentKind, name string) (string, error) {
	data, err := afero.ReadFile(s.fs, s.Path(kind, name))
	if err != nil {
		return "", errors.Wrap(model.ErrWrongParameter, string(kind)+" "+name+": "+err.Error())
	}

	return string(data), nil
}
