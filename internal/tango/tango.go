package tango

import (
	"context"
	"strconv"
	"strings"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
)

const (
	pkgName = "internal/tango"

	// DatabaseDevice is the Tango database server device.
	DatabaseDevice = "sys/database/2"
)

// State is a Tango device state.
type State string

const (
	StateOn      State = "ON"
	StateOff     State = "OFF"
	StateClose   State = "CLOSE"
	StateOpen    State = "OPEN"
	StateInsert  State = "INSERT"
	StateExtract State = "EXTRACT"
	StateMoving  State = "MOVING"
	StateStandby State = "STANDBY"
	StateFault   State = "FAULT"
	StateInit    State = "INIT"
	StateRunning State = "RUNNING"
	StateAlarm   State = "ALARM"
	StateDisable State = "DISABLE"
	StateUnknown State = "UNKNOWN"
)

// Proxy abstracts calls to a remote Tango device.
type Proxy interface {
	// Name of the device, without the Tango host.
	Name() string
	State(ctx context.Context) (State, error)
	// Command runs a command; in and out are JSON compatible values, both may be nil.
	Command(ctx context.Context, command string, in, out any) error
	ReadAttribute(ctx context.Context, attribute string, out any) error
	WriteAttribute(ctx context.Context, attribute string, value any) error
	AttributeNames(ctx context.Context) ([]string, error)
}

// Connector opens device proxies on one Tango database.
type Connector interface {
	// Device returns a proxy, name may carry its own host:port prefix.
	Device(name string) (Proxy, error)
	// DatabaseHost returns host:port of the Tango database in use.
	DatabaseHost() string
	// OnHost returns a connector for another Tango database.
	OnHost(host string, port int) Connector
}

// DeviceName is a parsed device name.
type DeviceName struct {
	Host   string
	Port   int
	Device string
}

// ParseDeviceName splits [tango://][host:port/]domain/family/member names,
// filling the host from the given defaults.
func ParseDeviceName(name, defaultHost string, defaultPort int) (DeviceName, error) {
	dn := DeviceName{Host: defaultHost, Port: defaultPort}

	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "tango://")

	parts := strings.Split(name, "/")
	if len(parts) == 4 && strings.Contains(parts[0], ":") {
		hostPort := strings.SplitN(parts[0], ":", 2)

		port, err := strconv.Atoi(hostPort[1])
		if err != nil {
			return dn, errors.Wrap(model.ErrWrongParameter, "invalid device port in "+name)
		}

		dn.Host = hostPort[0]
		dn.Port = port
		parts = parts[1:]
	}

	if len(parts) != 3 {
		return dn, errors.Wrap(model.ErrWrongParameter, "invalid device name "+name)
	}

	for _, p := range parts {
		if p == "" {
			return dn, errors.Wrap(model.ErrWrongParameter, "invalid device name "+name)
		}
	}

	dn.Device = strings.Join(parts, "/")

	return dn, nil
}

// ShortHost strips the domain from a host name.
func ShortHost(host string) string {
	if i := strings.Index(host, "."); i > 0 {
		if _, err := strconv.Atoi(host[:i]); err == nil {
			// ip address
			return host
		}

		return host[:i]
	}

	return host
}
