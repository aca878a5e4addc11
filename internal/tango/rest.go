package tango

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/nexdatas/nxstools/internal/configuration"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	restAPIPath     = "/tango/rest/rc4/hosts"
	requestIDHeader = "X-Request-ID"
)

// RESTConnector reaches devices through a Tango REST gateway.
type RESTConnector struct {
	endpoint string
	host     string
	port     int
	username string
	password string
	client   *retryablehttp.Client
	logger   *logrus.Entry
}

// NewRESTConnector returns a connector for the gateway in the given options.
func NewRESTConnector(ctx context.Context, opts *configuration.TangoOptions, logger *logrus.Entry) (*RESTConnector, error) {
	if opts.Endpoint == "" {
		return nil, errors.Wrap(model.ErrConfig, "tango REST endpoint not defined")
	}

	if opts.Host == "" {
		return nil, errors.Wrap(model.ErrConfig, "tango host not defined, set TANGO_HOST")
	}

	base, err := newTransport(ctx, opts)
	if err != nil {
		return nil, err
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.Logger = logger
	client.CheckRetry = checkRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient = &http.Client{
		Transport: otelhttp.NewTransport(base),
		Timeout:   opts.Timeout,
	}

	return &RESTConnector{
		endpoint: strings.TrimSuffix(opts.Endpoint, "/"),
		host:     opts.Host,
		port:     opts.Port,
		username: opts.Username,
		password: opts.Password,
		client:   client,
		logger:   logger,
	}, nil
}

func (c *RESTConnector) Device(name string) (Proxy, error) {
	dn, err := ParseDeviceName(name, c.host, c.port)
	if err != nil {
		return nil, err
	}

	return &restProxy{conn: c, name: dn}, nil
}

func (c *RESTConnector) DatabaseHost() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

func (c *RESTConnector) OnHost(host string, port int) Connector {
	clone := *c
	clone.host = host
	clone.port = port

	return &clone
}

type restProxy struct {
	conn *RESTConnector
	name DeviceName
}

func (p *restProxy) Name() string {
	return p.name.Device
}

func (p *restProxy) deviceURL(elem ...string) string {
	u := fmt.Sprintf("%s%s/%s/%d/devices/%s", p.conn.endpoint, restAPIPath, p.name.Host, p.name.Port, p.name.Device)
	for _, e := range elem {
		u += "/" + url.PathEscape(e)
	}

	return u
}

func (p *restProxy) State(ctx context.Context) (State, error) {
	body, err := p.do(ctx, http.MethodGet, p.deviceURL("state"), nil)
	if err != nil {
		return StateUnknown, err
	}

	state := gjson.GetBytes(body, "state").String()
	if state == "" {
		return StateUnknown, errors.Wrap(model.ErrRemoteOperation, p.name.Device+": state missing in response")
	}

	return State(strings.ToUpper(state)), nil
}

func (p *restProxy) Command(ctx context.Context, command string, in, out any) error {
	var payload any
	if in != nil {
		payload = map[string]any{"input": in}
	}

	body, err := p.do(ctx, http.MethodPut, p.deviceURL("commands", command), payload)
	if err != nil {
		return err
	}

	return decodeResult(body, "output", out)
}

func (p *restProxy) ReadAttribute(ctx context.Context, attribute string, out any) error {
	body, err := p.do(ctx, http.MethodGet, p.deviceURL("attributes", attribute, "value"), nil)
	if err != nil {
		return err
	}

	return decodeResult(body, "value", out)
}

func (p *restProxy) WriteAttribute(ctx context.Context, attribute string, value any) error {
	_, err := p.do(ctx, http.MethodPut, p.deviceURL("attributes", attribute, "value"), map[string]any{"value": value})

	return err
}

func (p *restProxy) AttributeNames(ctx context.Context) ([]string, error) {
	body, err := p.do(ctx, http.MethodGet, p.deviceURL("attributes"), nil)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, n := range gjson.GetBytes(body, "#.name").Array() {
		names = append(names, n.String())
	}

	return names, nil
}

func (p *restProxy) do(ctx context.Context, method, u string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(model.ErrWrongParameter, err.Error())
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, errors.Wrap(model.ErrConnection, err.Error())
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if p.conn.username != "" {
		req.SetBasicAuth(p.conn.username, p.conn.password)
	}

	p.conn.logger.WithFields(logrus.Fields{
		"method":    method,
		"url":       u,
		"requestID": req.Header.Get(requestIDHeader),
	}).Debug("tango request")

	resp, err := p.conn.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(model.ErrConnection, p.name.Device+": "+err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(model.ErrConnection, p.name.Device+": "+err.Error())
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.Wrap(model.ErrRemoteOperation, p.name.Device+": "+remoteError(resp.Status, body))
	}

	return body, nil
}

// checkRetry retries transport failures and gateway unavailability only,
// device commands are not idempotent.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true, nil
	default:
		return false, nil
	}
}

// remoteError extracts the Tango DevFailed description from an error response.
func remoteError(status string, body []byte) string {
	errs := gjson.GetBytes(body, "errors")
	if !errs.Exists() {
		return status
	}

	msgs := []string{}
	for _, e := range errs.Array() {
		desc := e.Get("description").String()
		if desc == "" {
			desc = e.Get("reason").String()
		}

		if desc != "" {
			msgs = append(msgs, desc)
		}
	}

	if len(msgs) == 0 {
		return status
	}

	return strings.Join(msgs, "; ")
}

func decodeResult(body []byte, key string, out any) error {
	if out == nil {
		return nil
	}

	result := gjson.GetBytes(body, key)
	if !result.Exists() {
		return errors.Wrap(model.ErrRemoteOperation, key+" missing in response")
	}

	if err := json.Unmarshal([]byte(result.Raw), out); err != nil {
		return errors.Wrap(model.ErrRemoteOperation, "unexpected "+key+": "+err.Error())
	}

	return nil
}
