package tango

import (
	"context"
	"time"

	"github.com/nexdatas/nxstools/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrument wraps a connector so every device call is traced and counted.
func Instrument(conn Connector) Connector {
	if _, ok := conn.(*instrumented); ok {
		return conn
	}

	return &instrumented{conn: conn}
}

type instrumented struct {
	conn Connector
}

func (i *instrumented) Device(name string) (Proxy, error) {
	p, err := i.conn.Device(name)
	if err != nil {
		return nil, err
	}

	return &instrumentedProxy{proxy: p}, nil
}

func (i *instrumented) DatabaseHost() string {
	return i.conn.DatabaseHost()
}

func (i *instrumented) OnHost(host string, port int) Connector {
	return Instrument(i.conn.OnHost(host, port))
}

type instrumentedProxy struct {
	proxy Proxy
}

func (p *instrumentedProxy) Name() string {
	return p.proxy.Name()
}

func (p *instrumentedProxy) start(ctx context.Context, op, target string) (context.Context, trace.Span, time.Time) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"tango."+op,
		trace.WithAttributes(
			attribute.String("tango.device", p.proxy.Name()),
			attribute.String("tango.target", target),
		),
	)

	return ctx, span, time.Now()
}

func (p *instrumentedProxy) end(span trace.Span, op string, started time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
	metrics.RemoteCall(op, started, err)
}

func (p *instrumentedProxy) State(ctx context.Context) (State, error) {
	ctx, span, started := p.start(ctx, "State", "")
	state, err := p.proxy.State(ctx)
	p.end(span, "State", started, err)

	return state, err
}

func (p *instrumentedProxy) Command(ctx context.Context, command string, in, out any) error {
	ctx, span, started := p.start(ctx, "Command", command)
	err := p.proxy.Command(ctx, command, in, out)
	p.end(span, command, started, err)

	return err
}

func (p *instrumentedProxy) ReadAttribute(ctx context.Context, attr string, out any) error {
	ctx, span, started := p.start(ctx, "ReadAttribute", attr)
	err := p.proxy.ReadAttribute(ctx, attr, out)
	p.end(span, "ReadAttribute", started, err)

	return err
}

func (p *instrumentedProxy) WriteAttribute(ctx context.Context, attr string, value any) error {
	ctx, span, started := p.start(ctx, "WriteAttribute", attr)
	err := p.proxy.WriteAttribute(ctx, attr, value)
	p.end(span, "WriteAttribute", started, err)

	return err
}

func (p *instrumentedProxy) AttributeNames(ctx context.Context) ([]string, error) {
	ctx, span, started := p.start(ctx, "AttributeNames", "")
	names, err := p.proxy.AttributeNames(ctx)
	p.end(span, "AttributeNames", started, err)

	return names, err
}
