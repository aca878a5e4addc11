package datawriter

import (
	"context"
	"strings"

	"github.com/nexdatas/nxstools/internal/kind"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/pkg/errors"
)

type handler func(ctx context.Context, w Writer, arg string) error

var handlers = map[kind.WriterCommand]handler{
	kind.OpenFile: func(ctx context.Context, w Writer, arg string) error {
		return w.OpenFile(ctx, arg)
	},
	kind.SetData: func(ctx context.Context, w Writer, arg string) error {
		return w.SetData(ctx, strings.TrimSpace(arg))
	},
	kind.OpenEntry: func(ctx context.Context, w Writer, arg string) error {
		return w.OpenEntry(ctx, strings.TrimSpace(arg))
	},
	kind.WriteRecord: func(ctx context.Context, w Writer, arg string) error {
		return w.Record(ctx, strings.TrimSpace(arg))
	},
	kind.CloseEntry: func(ctx context.Context, w Writer, _ string) error {
		return w.CloseEntry(ctx)
	},
	kind.CloseFile: func(ctx context.Context, w Writer, _ string) error {
		return w.CloseFile(ctx)
	},
}

// Perform runs one lifecycle command, only the first argument is used.
func Perform(ctx context.Context, w Writer, cmd kind.WriterCommand, args []string) error {
	h, ok := handlers[cmd]
	if !ok {
		return errors.Wrap(model.ErrInvalidAction, "unknown data writer command "+cmd.String())
	}

	if len(args) < cmd.MinArgs() {
		return errors.Wrap(model.ErrMissingParameter, cmd.String()+" needs an argument")
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	return h(ctx, w, arg)
}

// Servers lists the exported data writers of class.
func Servers(ctx context.Context, conn tango.Connector, class string) (string, error) {
	devices, err := tango.ExportedDevices(ctx, conn, class)
	if err != nil {
		return "", err
	}

	return strings.Join(devices, "\n"), nil
}
