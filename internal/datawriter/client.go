// Package datawriter drives a NeXus data writer device through the
// file and entry lifecycle.
package datawriter

import (
	"context"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	attrFileName   = "FileName"
	attrJSONRecord = "TheJSONRecord"
	attrXMLSetting = "TheXMLSettings"
)

// Writer is a data writer device.
type Writer interface {
	Name() string
	State(ctx context.Context) (tango.State, error)
	OpenFile(ctx context.Context, fileName string) error
	SetData(ctx context.Context, jsonData string) error
	OpenEntry(ctx context.Context, xmlSettings string) error
	Record(ctx context.Context, jsonData string) error
	CloseEntry(ctx context.Context) error
	CloseFile(ctx context.Context) error
}

// Client is a Writer reached through a device proxy.
type Client struct {
	proxy  tango.Proxy
	logger *logrus.Entry
}

// Open connects to the data writer device and waits until it is ready.
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
	c.logger.WithField("state", state).Debug("data writer ready")

	return c, nil
}

func (c *Client) Name() string {
	return c.proxy.Name()
}

func (c *Client) State(ctx context.Context) (tango.State, error) {
	return c.proxy.State(ctx)
}

func (c *Client) command(ctx context.Context, command string, in any) error {
	if err := c.proxy.Command(ctx, command, in, nil); err != nil {
		if errors.Is(err, model.ErrConnection) || errors.Is(err, model.ErrRemoteOperation) {
			return err
		}

		return errors.Wrap(model.ErrRemoteOperation, command+": "+err.Error())
	}

	c.logger.WithField("command", command).Debug("data writer command")

	return nil
}

func (c *Client) write(ctx context.Context, attribute, value string) error {
	if err := c.proxy.WriteAttribute(ctx, attribute, value); err != nil {
		if errors.Is(err, model.ErrConnection) || errors.Is(err, model.ErrRemoteOperation) {
			return err
		}

		return errors.Wrap(model.ErrRemoteOperation, "write "+attribute+": "+err.Error())
	}

	return nil
}

// OpenFile resets the writer and opens a new NeXus file.
func (c *Client) OpenFile(ctx context.Context, fileName string) error {
	if fileName == "" {
		return errors.Wrap(model.ErrMissingParameter, "file name")
	}

	if err := c.command(ctx, "Init", nil); err != nil {
		return err
	}

	if err := c.write(ctx, attrFileName, fileName); err != nil {
		return err
	}

	return c.command(ctx, "OpenFile", nil)
}

// SetData sets the global JSON data used by the INIT and FINAL fields.
func (c *Client) SetData(ctx context.Context, jsonData string) error {
	if err := ValidateJSON(jsonData); err != nil {
		return err
	}

	return c.write(ctx, attrJSONRecord, jsonData)
}

// OpenEntry sets the XML configuration and creates a new entry.
func (c *Client) OpenEntry(ctx context.Context, xmlSettings string) error {
	if xmlSettings == "" {
		return errors.Wrap(model.ErrMissingParameter, "xml settings")
	}

	if err := c.write(ctx, attrXMLSetting, xmlSettings); err != nil {
		return err
	}

	return c.command(ctx, "OpenEntry", nil)
}

// Record writes one step with its step JSON data.
func (c *Client) Record(ctx context.Context, jsonData string) error {
	if err := ValidateJSON(jsonData); err != nil {
		return err
	}

	return c.command(ctx, "Record", jsonData)
}

func (c *Client) CloseEntry(ctx context.Context) error {
	return c.command(ctx, "CloseEntry", nil)
}

func (c *Client) CloseFile(ctx context.Context) error {
	return c.command(ctx, "CloseFile", nil)
}

// ValidateJSON accepts JSON objects only.
func ValidateJSON(data string) error {
	if !gjson.Valid(data) {
		return errors.Wrap(model.ErrWrongParameter, "invalid JSON data: "+abbreviate(data))
	}

	if !gjson.Parse(data).IsObject() {
		return errors.Wrap(model.ErrWrongParameter, "JSON data is not an object: "+abbreviate(data))
	}

	return nil
}

func abbreviate(s string) string {
	const limit = 40
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
