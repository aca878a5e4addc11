// Package configserver talks to the NeXus configuration server device which
// stores datasource and component documents.
package configserver

import (
	"context"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const xmlAttribute = "XMLString"

// Server abstracts the configuration server operations.
type Server interface {
	Name() string
	Close(ctx context.Context) error
	AvailableComponents(ctx context.Context) ([]string, error)
	AvailableDataSources(ctx context.Context) ([]string, error)
	MandatoryComponents(ctx context.Context) ([]string, error)
	Components(ctx context.Context, names []string) ([]string, error)
	DataSources(ctx context.Context, names []string) ([]string, error)
	ComponentDataSources(ctx context.Context, name string) ([]string, error)
	StoreComponent(ctx context.Context, name, xml string) error
	StoreDataSource(ctx context.Context, name, xml string) error
	SetMandatoryComponents(ctx context.Context, names []string) error
	CreateConfiguration(ctx context.Context, names []string) (string, error)
}

// Client is a Server reached through a device proxy.
type Client struct {
	proxy  tango.Proxy
	logger *logrus.Entry
}

// Open connects to the configuration server device, waits until it is ready
// and opens its database session.
func Open(ctx context.Context, conn tango.Connector, device string, ready tango.ReadyOptions, logger *logrus.Entry) (*Client, error) {
	proxy, err := conn.Device(device)
	if err != nil {
		return nil, err
	}

	state, err := tango.WaitReady(ctx, proxy, ready)
	if err != nil {
		return nil, err
	}

	c := &Client{proxy: proxy, logger: logger.WithField("device", proxy.Name())}
	c.logger.WithField("state", state).Debug("configuration server ready")

	if err := c.command(ctx, "Open", nil, nil); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) Name() string {
	return c.proxy.Name()
}

func (c *Client) command(ctx context.Context, command string, in, out any) error {
	if err := c.proxy.Command(ctx, command, in, out); err != nil {
		if errors.Is(err, model.ErrConnection) || errors.Is(err, model.ErrRemoteOperation) {
			return err
		}

		return errors.Wrap(model.ErrRemoteOperation, command+": "+err.Error())
	}

	return nil
}

func (c *Client) names(ctx context.Context, command string, in any) ([]string, error) {
	out := []string{}
	if err := c.command(ctx, command, in, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Close ends the database session.
func (c *Client) Close(ctx context.Context) error {
	return c.command(ctx, "Close", nil, nil)
}

func (c *Client) AvailableComponents(ctx context.Context) ([]string, error) {
	return c.names(ctx, "AvailableComponents", nil)
}

func (c *Client) AvailableDataSources(ctx context.Context) ([]string, error) {
	return c.names(ctx, "AvailableDataSources", nil)
}

func (c *Client) MandatoryComponents(ctx context.Context) ([]string, error) {
	return c.names(ctx, "MandatoryComponents", nil)
}

// Components fetches the XML of the named components.
func (c *Client) Components(ctx context.Context, names []string) ([]string, error) {
	return c.names(ctx, "Components", names)
}

// DataSources fetches the XML of the named datasources.
func (c *Client) DataSources(ctx context.Context, names []string) ([]string, error) {
	return c.names(ctx, "DataSources", names)
}

// ComponentDataSources lists the datasources a stored component references.
func (c *Client) ComponentDataSources(ctx context.Context, name string) ([]string, error) {
	return c.names(ctx, "ComponentDataSources", name)
}

func (c *Client) store(ctx context.Context, command, name, xml string) error {
	if err := c.proxy.WriteAttribute(ctx, xmlAttribute, xml); err != nil {
		return errors.Wrap(model.ErrRemoteOperation, "write "+xmlAttribute+": "+err.Error())
	}

	if err := c.command(ctx, command, name, nil); err != nil {
		return err
	}

	c.logger.WithField("name", name).Debug(command)

	return nil
}

func (c *Client) StoreComponent(ctx context.Context, name, xml string) error {
	return c.store(ctx, "StoreComponent", name, xml)
}

func (c *Client) StoreDataSource(ctx context.Context, name, xml string) error {
	return c.store(ctx, "StoreDataSource", name, xml)
}

func (c *Client) SetMandatoryComponents(ctx context.Context, names []string) error {
	return c.command(ctx, "SetMandatoryComponents", names, nil)
}

// CreateConfiguration merges the mandatory and the named components into one
// configuration document.
func (c *Client) CreateConfiguration(ctx context.Context, names []string) (string, error) {
	if err := c.command(ctx, "CreateConfiguration", names, nil); err != nil {
		return "", err
	}

	xml := ""
	if err := c.proxy.ReadAttribute(ctx, xmlAttribute, &xml); err != nil {
		return "", errors.Wrap(model.ErrRemoteOperation, "read "+xmlAttribute+": "+err.Error())
	}

	return xml, nil
}
