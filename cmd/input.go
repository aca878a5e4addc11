package cmd

import (
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/nexdatas/nxstools/internal/inventory"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/pkg/errors"
)

// piped returns standard input when it is not a terminal.
func piped(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return "", nil
		}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", errors.Wrap(model.ErrParse, "read standard input: "+err.Error())
	}

	return string(data), nil
}

// onHost switches conn to the Tango database at host[:port], conn itself for
// an empty address.
func onHost(conn tango.Connector, address string) (tango.Connector, error) {
	if address == "" {
		return conn, nil
	}

	if !strings.Contains(address, ":") {
		return conn.OnHost(address, inventory.DefaultPort), nil
	}

	host, p, err := net.SplitHostPort(address)
	if err != nil {
		return nil, errors.Wrap(model.ErrWrongParameter, "invalid tango host "+address)
	}

	port, err := strconv.Atoi(p)
	if err != nil {
		return nil, errors.Wrap(model.ErrWrongParameter, "invalid tango port in "+address)
	}

	return conn.OnHost(host, port), nil
}
