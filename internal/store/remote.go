package store

import (
	"context"

	"github.com/nexdatas/nxstools/internal/configserver"
	"github.com/nexdatas/nxstools/internal/metrics"
	"github.com/nexdatas/nxstools/internal/model"
)

const remoteStoreName = "configserver"

// RemoteStore keeps the documents in the configuration server.
type RemoteStore struct {
	server    configserver.Server
	overwrite bool
}

func NewRemoteStore(server configserver.Server, overwrite bool) *RemoteStore {
	return &RemoteStore{server: server, overwrite: overwrite}
}

func (s *RemoteStore) Name() string {
	return remoteStoreName
}

func (s *RemoteStore) Existing(ctx context.Context, kind model.DocumentKind) ([]string, error) {
	if kind == model.KindDataSource {
		return s.server.AvailableDataSources(ctx)
	}

	return s.server.AvailableComponents(ctx)
}

// Store writes the document, failing when the name is taken and overwrite is off.
func (s *RemoteStore) Store(ctx context.Context, kind model.DocumentKind, name, xml string) error {
	if err := Check(ctx, s, kind, []string{name}, s.overwrite); err != nil {
		return err
	}

	var err error
	if kind == model.KindDataSource {
		err = s.server.StoreDataSource(ctx, name, xml)
	} else {
		err = s.server.StoreComponent(ctx, name, xml)
	}

	if err != nil {
		return err
	}

	metrics.DocumentStored(string(kind), remoteStoreName)

	return nil
}

// SetMandatory marks stored components mandatory.
func (s *RemoteStore) SetMandatory(ctx context.Context, names []string) error {
	return s.server.SetMandatoryComponents(ctx, names)
}
