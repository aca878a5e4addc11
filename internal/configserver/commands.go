package configserver

import (
	"context"
	"strings"

	"github.com/nexdatas/nxstools/internal/descriptor"
	"github.com/nexdatas/nxstools/internal/kind"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/pkg/errors"
)

// Options modify the query commands.
type Options struct {
	// DataSources selects datasources instead of components.
	DataSources bool
	// Mandatory selects, or prepends, the mandatory components.
	Mandatory bool
	// NoNewLines joins the results with spaces.
	NoNewLines bool
}

func (o *Options) separator() string {
	if o.NoNewLines {
		return " "
	}

	return "\n"
}

type handler func(ctx context.Context, s Server, opts *Options, args []string) ([]string, error)

var handlers = map[kind.ConfigCommand]handler{
	kind.List:    list,
	kind.Show:    show,
	kind.Get:     get,
	kind.Sources: sources,
	kind.Record:  record,
}

// Perform runs a query command and returns its output.
func Perform(ctx context.Context, s Server, cmd kind.ConfigCommand, args []string, opts Options) (string, error) {
	h, ok := handlers[cmd]
	if !ok {
		return "", errors.Wrap(model.ErrInvalidAction, cmd.String()+" is not a configuration server query")
	}

	if len(args) < cmd.MinArgs() {
		return "", errors.Wrap(model.ErrMissingParameter, cmd.String()+" needs a name")
	}

	out, err := h(ctx, s, &opts, args)
	if err != nil {
		return "", err
	}

	return strings.Join(out, opts.separator()), nil
}

// Servers lists the exported configuration servers of class.
func Servers(ctx context.Context, conn tango.Connector, class string, opts Options) (string, error) {
	devices, err := tango.ExportedDevices(ctx, conn, class)
	if err != nil {
		return "", err
	}

	return strings.Join(devices, opts.separator()), nil
}

func list(ctx context.Context, s Server, opts *Options, _ []string) ([]string, error) {
	switch {
	case opts.DataSources && opts.Mandatory:
		return []string{}, nil
	case opts.DataSources:
		return s.AvailableDataSources(ctx)
	case opts.Mandatory:
		return s.MandatoryComponents(ctx)
	default:
		return s.AvailableComponents(ctx)
	}
}

// checkStored fails with a wrong parameter error for names the server does not hold.
func checkStored(ctx context.Context, s Server, dataSources bool, names []string) error {
	var (
		available []string
		err       error
		what      = model.KindComponent
	)

	if dataSources {
		what = model.KindDataSource
		available, err = s.AvailableDataSources(ctx)
	} else {
		available, err = s.AvailableComponents(ctx)
	}

	if err != nil {
		return err
	}

	stored := make(map[string]bool, len(available))
	for _, n := range available {
		stored[n] = true
	}

	for _, n := range names {
		if !stored[n] {
			return errors.Wrap(model.ErrWrongParameter, string(what)+" "+n+" not stored in configuration server")
		}
	}

	return nil
}

func show(ctx context.Context, s Server, opts *Options, args []string) ([]string, error) {
	if err := checkStored(ctx, s, opts.DataSources, args); err != nil {
		return nil, err
	}

	if opts.DataSources {
		return s.DataSources(ctx, args)
	}

	if !opts.Mandatory {
		return s.Components(ctx, args)
	}

	names, err := s.MandatoryComponents(ctx)
	if err != nil {
		return nil, err
	}

	return s.Components(ctx, append(names, args...))
}

func get(ctx context.Context, s Server, opts *Options, args []string) ([]string, error) {
	if opts.DataSources {
		return []string{}, nil
	}

	if err := checkStored(ctx, s, false, args); err != nil {
		return nil, err
	}

	xml, err := s.CreateConfiguration(ctx, args)
	if err != nil {
		return nil, err
	}

	return []string{xml}, nil
}

func sources(ctx context.Context, s Server, _ *Options, args []string) ([]string, error) {
	if err := checkStored(ctx, s, false, args[:1]); err != nil {
		return nil, err
	}

	return s.ComponentDataSources(ctx, args[0])
}

// record lists what the datasources read: the datasource given with -d, or
// the inline datasources of the component followed by the stored ones it uses.
func record(ctx context.Context, s Server, opts *Options, args []string) ([]string, error) {
	name := args[0]
	records := []string{}
	names := []string{}

	if opts.DataSources {
		names = append(names, name)
	} else {
		if err := checkStored(ctx, s, false, []string{name}); err != nil {
			return nil, err
		}

		xmls, err := s.Components(ctx, []string{name})
		if err != nil {
			return nil, err
		}

		inline := map[string]bool{}

		for _, xml := range xmls {
			dss, err := descriptor.InlineDataSources(xml)
			if err != nil {
				return nil, errors.Wrap(err, "component "+name)
			}

			for _, ds := range dss {
				inline[ds.Name] = true
				if rec := ds.RecordName(); rec != "" {
					records = append(records, rec)
				}
			}
		}

		all, err := s.ComponentDataSources(ctx, name)
		if err != nil {
			return nil, err
		}

		for _, n := range all {
			if !inline[n] {
				names = append(names, n)
			}
		}
	}

	if len(names) == 0 {
		return records, nil
	}

	if err := checkStored(ctx, s, true, names); err != nil {
		return nil, err
	}

	xmls, err := s.DataSources(ctx, names)
	if err != nil {
		return nil, err
	}

	for i, xml := range xmls {
		if xml == "" {
			continue
		}

		ds, err := descriptor.ParseDataSource(xml)
		if err != nil {
			return nil, errors.Wrap(err, "datasource "+names[i])
		}

		if rec := ds.RecordName(); rec != "" {
			records = append(records, rec)
		}
	}

	return records, nil
}
