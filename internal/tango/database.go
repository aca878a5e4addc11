package tango

import (
	"context"
	"sort"
	"strings"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
)

const exportedDevicesCommand = "DbGetExportdDeviceListForClass"

// ExportedDevices lists the exported devices of a device class.
func ExportedDevices(ctx context.Context, conn Connector, class string) ([]string, error) {
	db, err := conn.Device(DatabaseDevice)
	if err != nil {
		return nil, err
	}

	devices := []string{}
	if err := db.Command(ctx, exportedDevicesCommand, class, &devices); err != nil {
		return nil, err
	}

	sort.Strings(devices)

	return devices, nil
}

// FindServer returns the only exported device of the class,
// or an error when there is none or the choice is ambiguous.
func FindServer(ctx context.Context, conn Connector, class string) (string, error) {
	devices, err := ExportedDevices(ctx, conn, class)
	if err != nil {
		return "", err
	}

	switch len(devices) {
	case 0:
		return "", errors.Wrap(model.ErrWrongParameter, "no "+class+" server exported on "+conn.DatabaseHost())
	case 1:
		return devices[0], nil
	default:
		return "", errors.Wrap(
			model.ErrWrongParameter,
			"more than one "+class+" server, choose one with --server: "+strings.Join(devices, ", "),
		)
	}
}
