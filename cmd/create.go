package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nexdatas/nxstools/internal/creator"
	"github.com/nexdatas/nxstools/internal/inventory"
	"github.com/nexdatas/nxstools/internal/store"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/nexdatas/nxstools/internal/templates"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate datasources and components",
}

// storeFlags select where the generated documents go.
type storeFlags struct {
	database   bool
	directory  string
	filePrefix string
	overwrite  bool
	server     string
}

func (f *storeFlags) register(cmd *cobra.Command, directory, what string) {
	cmd.Flags().BoolVarP(&f.database, "database", "b", false, "store "+what+" in the configuration server")
	cmd.Flags().StringVarP(&f.directory, "directory", "d", directory, "output "+what+" directory")
	cmd.Flags().StringVarP(&f.filePrefix, "file-prefix", "x", "", "file name prefix")
	cmd.Flags().StringVarP(&f.server, "server", "r", "", "configuration server device name")
}

func (f *storeFlags) registerOverwrite(cmd *cobra.Command, what string) {
	cmd.Flags().BoolVarP(&f.overwrite, "overwrite", "o", false, "overwrite existing "+what)
}

// repository opens the destination, overwrite forces replacing documents.
func (f *storeFlags) repository(ctx context.Context, e *env, out io.Writer, overwrite bool) (store.Repository, func(), error) {
	opts := &store.Options{
		Directory:  f.directory,
		FilePrefix: f.filePrefix,
		Fs:         afero.NewOsFs(),
		Out:        out,
		Overwrite:  overwrite || f.overwrite,
	}

	if !f.database {
		return store.NewRepository(opts), func() {}, nil
	}

	server, err := e.configServer(ctx, f.server)
	if err != nil {
		return nil, nil, err
	}

	opts.Server = server

	return store.NewRepository(opts), func() { _ = server.Close(ctx) }, nil
}

// create runs the generator returned by build against the destination of sf,
// a nil generator means build already did all the work.
func create(cmd *cobra.Command, sf *storeFlags, overwrite bool, build func(ctx context.Context, e *env) (creator.Generator, error)) error {
	return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
		g, err := build(ctx, e)
		if err != nil || g == nil {
			return err
		}

		repo, done, err := sf.repository(ctx, e, cmd.OutOrStdout(), overwrite)
		if err != nil {
			return err
		}

		defer done()

		return g.Create(ctx, repo)
	})
}

func templatePackage(dir string) (*templates.Package, error) {
	if dir == "" {
		return templates.Default()
	}

	return templates.FromDir(afero.NewOsFs(), dir)
}

func onlineFile(e *env, argv []string) string {
	if len(argv) > 0 && argv[0] != "" {
		return argv[0]
	}

	return e.config.OnlineFile
}

func rangeFlags(cmd *cobra.Command, r *creator.Range) {
	cmd.Flags().StringVarP(&r.Prefix, "device-prefix", "v", "", "device prefix, i.e. exp_c")
	cmd.Flags().IntVarP(&r.First, "first", "f", 1, "first index")
	cmd.Flags().IntVarP(&r.Last, "last", "l", 0, "last index")
	cmd.Flags().BoolVarP(&r.Minimal, "minimal_device", "m", false, "device name without leading zeros")
}

var (
	clientDSOpts  = creator.ClientDSOptions{}
	clientDSStore = storeFlags{}
)

var clientDSCmd = &cobra.Command{
	Use:   "clientds [names...]",
	Short: "Create CLIENT datasources from names or a device range",
	RunE: func(cmd *cobra.Command, argv []string) error {
		return create(cmd, &clientDSStore, false, func(_ context.Context, e *env) (creator.Generator, error) {
			clientDSOpts.Names = argv
			clientDSOpts.Overwrite = clientDSStore.overwrite

			return creator.NewClientDS(&clientDSOpts, e.component("clientds")), nil
		})
	},
}

var (
	tangoDSOpts  = creator.TangoDSOptions{}
	tangoDSStore = storeFlags{}
)

var tangoDSCmd = &cobra.Command{
	Use:   "tangods",
	Short: "Create TANGO datasources for a device range",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return create(cmd, &tangoDSStore, false, func(_ context.Context, e *env) (creator.Generator, error) {
			tangoDSOpts.Overwrite = tangoDSStore.overwrite

			return creator.NewTangoDS(&tangoDSOpts, e.component("tangods")), nil
		})
	},
}

var (
	deviceDSOpts  = creator.DeviceDSOptions{}
	deviceDSStore = storeFlags{}
)

var deviceDSCmd = &cobra.Command{
	Use:   "deviceds [attributes...]",
	Short: "Create TANGO datasources for the attributes of a device",
	RunE: func(cmd *cobra.Command, argv []string) error {
		return create(cmd, &deviceDSStore, false, func(ctx context.Context, e *env) (creator.Generator, error) {
			deviceDSOpts.Attributes = argv
			deviceDSOpts.Overwrite = deviceDSStore.overwrite

			var (
				conn tango.Connector
				err  error
			)

			if len(argv) == 0 {
				if conn, err = e.connector(ctx); err != nil {
					return nil, err
				}
			}

			return creator.NewDeviceDS(&deviceDSOpts, conn, e.component("deviceds")), nil
		})
	},
}

var (
	onlineDSOpts  = creator.OnlineDSOptions{}
	onlineDSStore = storeFlags{}
)

var onlineDSCmd = &cobra.Command{
	Use:   "onlineds [online_file]",
	Short: "Create the datasources of every device of an inventory",
	Long: `Create the datasources of every device of an inventory.

Existing datasources are replaced. Without --database or --directory the
datasources are printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, argv []string) error {
		return create(cmd, &onlineDSStore, true, func(_ context.Context, e *env) (creator.Generator, error) {
			devices, err := inventory.ParseFile(afero.NewOsFs(), onlineFile(e, argv))
			if err != nil {
				return nil, err
			}

			onlineDSOpts.Devices = devices

			return creator.NewOnlineDS(&onlineDSOpts, e.component("onlineds")), nil
		})
	},
}

var (
	onlineCPOpts    = creator.OnlineCPOptions{}
	onlineCPStore   = storeFlags{}
	onlineCPPackage string
)

var onlineCPCmd = &cobra.Command{
	Use:   "onlinecp [online_file]",
	Short: "List the possible components of an inventory, or create one with its datasources",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, argv []string) error {
		return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
			devices, err := inventory.ParseFile(afero.NewOsFs(), onlineFile(e, argv))
			if err != nil {
				return err
			}

			onlineCPOpts.Devices = devices
			onlineCPOpts.Overwrite = onlineCPStore.overwrite

			if strings.TrimSpace(onlineCPOpts.Component) == "" {
				g := creator.NewOnlineCP(&onlineCPOpts, e.component("onlinecp"))
				fmt.Fprintf(cmd.OutOrStdout(), "POSSIBLE COMPONENTS: %s\n", strings.Join(g.Components(), " "))

				return nil
			}

			pkg, err := templatePackage(onlineCPPackage)
			if err != nil {
				return err
			}

			onlineCPOpts.Package = pkg

			// datasources are replaced, the component is checked by the generator
			repo, done, err := onlineCPStore.repository(ctx, e, cmd.OutOrStdout(), true)
			if err != nil {
				return err
			}

			defer done()

			return creator.NewOnlineCP(&onlineCPOpts, e.component("onlinecp")).Create(ctx, repo)
		})
	},
}

var (
	stdCompOpts    = creator.StdCompOptions{}
	stdCompStore   = storeFlags{}
	stdCompPackage string
)

var stdCompCmd = &cobra.Command{
	Use:   "stdcomp [key value]...",
	Short: "List standard component types and variables, or create a standard component",
	RunE: func(cmd *cobra.Command, argv []string) error {
		vars, err := creator.ParseVariables(argv)
		if err != nil {
			return err
		}

		return create(cmd, &stdCompStore, false, func(_ context.Context, e *env) (creator.Generator, error) {
			pkg, err := templatePackage(stdCompPackage)
			if err != nil {
				return nil, err
			}

			stdCompOpts.Package = pkg
			stdCompOpts.Variables = vars
			stdCompOpts.Overwrite = stdCompStore.overwrite

			g := creator.NewStdComp(&stdCompOpts, e.component("stdcomp"))

			switch {
			case stdCompOpts.Type == "":
				return nil, g.Types(cmd.OutOrStdout())
			case stdCompOpts.Component == "":
				return nil, g.Variables(cmd.OutOrStdout())
			default:
				return g, nil
			}
		})
	},
}

var (
	compOpts  = creator.CompOptions{}
	compStore = storeFlags{}
)

var compCmd = &cobra.Command{
	Use:   "comp [names...]",
	Short: "Create simple components with one field each",
	RunE: func(cmd *cobra.Command, argv []string) error {
		return create(cmd, &compStore, false, func(_ context.Context, e *env) (creator.Generator, error) {
			compOpts.Names = argv
			compOpts.Overwrite = compStore.overwrite

			return creator.NewComp(&compOpts, e.component("comp")), nil
		})
	},
}

var compareNoLower bool

var compareCmd = &cobra.Command{
	Use:   "compare <online_file> [online_file]",
	Short: "Compare the devices of two inventories",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, argv []string) error {
		second := ""
		if len(argv) > 1 {
			second = argv[1]
		}

		c, err := creator.Compare(afero.NewOsFs(), argv[0], second, compareNoLower)
		if err != nil {
			return err
		}

		if second == "" {
			second = creator.DefaultOnlineFile
		}

		creator.Report(cmd.OutOrStdout(), c, argv[0], second)

		return nil
	},
}

func init() {
	rangeFlags(clientDSCmd, &clientDSOpts.Devices)
	clientDSCmd.Flags().StringVarP(&clientDSOpts.DataSourcePrefix, "datasource-prefix", "s", "", "datasource name prefix")
	clientDSCmd.Flags().BoolVar(&clientDSOpts.NoLower, "nolower", false, "do not change names into lower case")
	clientDSStore.register(clientDSCmd, ".", "datasources")
	clientDSStore.registerOverwrite(clientDSCmd, "datasources")

	rangeFlags(tangoDSCmd, &tangoDSOpts.Devices)
	tangoDSCmd.Flags().StringVarP(&tangoDSOpts.Attribute, "attribute", "a", "Position", "tango attribute name")
	tangoDSCmd.Flags().StringVarP(&tangoDSOpts.DataSourcePrefix, "datasource-prefix", "s", "exp_mot", "datasource name prefix")
	tangoDSCmd.Flags().StringVarP(&tangoDSOpts.Host, "host", "u", "", "tango host name")
	tangoDSCmd.Flags().IntVarP(&tangoDSOpts.Port, "port", "t", inventory.DefaultPort, "tango host port")
	tangoDSCmd.Flags().StringVarP(&tangoDSOpts.Group, "group", "g", "", "device group name")
	tangoDSCmd.Flags().StringVarP(&tangoDSOpts.ElementType, "elementtype", "e", "attribute", "element type, i.e. attribute, property or command")
	tangoDSCmd.Flags().BoolVar(&tangoDSOpts.NoLower, "nolower", false, "do not change names into lower case")
	tangoDSStore.register(tangoDSCmd, ".", "datasources")
	tangoDSStore.registerOverwrite(tangoDSCmd, "datasources")

	deviceDSCmd.Flags().StringVarP(&deviceDSOpts.Device, "device", "v", "", "tango device name")
	deviceDSCmd.Flags().StringVarP(&deviceDSOpts.DataSourcePrefix, "datasource-prefix", "s", "", "datasource name prefix")
	deviceDSCmd.Flags().StringVarP(&deviceDSOpts.Host, "host", "u", "", "tango host name")
	deviceDSCmd.Flags().IntVarP(&deviceDSOpts.Port, "port", "t", inventory.DefaultPort, "tango host port")
	deviceDSCmd.Flags().BoolVarP(&deviceDSOpts.NoGroup, "no-group", "n", false, "do not group the datasources")
	deviceDSCmd.Flags().BoolVar(&deviceDSOpts.NoLower, "nolower", false, "do not change names into lower case")
	deviceDSStore.register(deviceDSCmd, ".", "datasources")
	deviceDSStore.registerOverwrite(deviceDSCmd, "datasources")

	onlineDSCmd.Flags().BoolVarP(&onlineDSOpts.NoClientLike, "noclientlike", "t", false, "keep motor datasources pure tango-like")
	onlineDSCmd.Flags().BoolVarP(&onlineDSOpts.NoLower, "nolower", "n", false, "do not change aliases into lower case")
	onlineDSStore.register(onlineDSCmd, "", "datasources")

	onlineCPCmd.Flags().StringVarP(&onlineCPOpts.Component, "component", "c", "", "component name of an inventory device")
	onlineCPCmd.Flags().BoolVarP(&onlineCPOpts.NoLower, "nolower", "n", false, "do not change aliases into lower case")
	onlineCPCmd.Flags().StringVarP(&onlineCPPackage, "xml-package", "p", "", "template package directory")
	onlineCPCmd.Flags().StringVarP(&onlineCPOpts.EntryName, "entryname", "y", "scan", "entry group name (prefix)")
	onlineCPCmd.Flags().StringVarP(&onlineCPOpts.InsName, "insname", "i", "instrument", "instrument group name")
	onlineCPStore.register(onlineCPCmd, ".", "components")
	onlineCPStore.registerOverwrite(onlineCPCmd, "component")

	stdCompCmd.Flags().StringVarP(&stdCompOpts.Component, "component", "c", "", "component name")
	stdCompCmd.Flags().StringVarP(&stdCompOpts.Type, "type", "t", "", "component type")
	stdCompCmd.Flags().StringVarP(&stdCompPackage, "xml-package", "p", "", "template package directory")
	stdCompCmd.Flags().BoolVarP(&stdCompOpts.NoLower, "nolower", "n", false, "do not change names into lower case")
	stdCompCmd.Flags().BoolVarP(&stdCompOpts.Mandatory, "mandatory", "m", false, "set the component as mandatory")
	stdCompCmd.Flags().StringVarP(&stdCompOpts.EntryName, "entryname", "y", "scan", "entry group name (prefix)")
	stdCompCmd.Flags().StringVarP(&stdCompOpts.InsName, "insname", "i", "instrument", "instrument group name")
	stdCompStore.register(stdCompCmd, ".", "components")
	stdCompStore.registerOverwrite(stdCompCmd, "component")

	rangeFlags(compCmd, &compOpts.Devices)
	compCmd.Flags().BoolVarP(&compOpts.CanFail, "can-fail", "a", false, "can fail strategy flag")
	compCmd.Flags().StringVarP(&compOpts.NexusPath, "nexuspath", "n", "", "nexus path with field name")
	compCmd.Flags().StringVarP(&compOpts.Strategy, "strategy", "g", "STEP", "writing strategy, i.e. STEP, INIT, FINAL, POSTRUN")
	compCmd.Flags().StringVarP(&compOpts.DataSourcePrefix, "datasource-prefix", "s", "", "datasource name prefix")
	compCmd.Flags().StringVarP(&compOpts.Type, "type", "t", "NX_FLOAT", "nexus type of the field")
	compCmd.Flags().StringVarP(&compOpts.Units, "units", "u", "", "nexus units of the field")
	compCmd.Flags().BoolVarP(&compOpts.FieldLinks, "links", "k", false, "create links named after the field")
	compCmd.Flags().BoolVarP(&compOpts.SourceLinks, "source-links", "i", false, "create links named after the datasource")
	compCmd.Flags().StringVarP(&compOpts.Chunk, "chunk", "c", "SCALAR", "chunk format, i.e. SCALAR, SPECTRUM, IMAGE")
	compCmd.Flags().StringVarP(&compOpts.EntryName, "entryname", "y", "scan", "entry group name (prefix)")
	compCmd.Flags().BoolVar(&compOpts.NoLower, "nolower", false, "do not change names into lower case")
	compStore.register(compCmd, ".", "components")
	compStore.registerOverwrite(compCmd, "components")

	compareCmd.Flags().BoolVarP(&compareNoLower, "nolower", "n", false, "do not change aliases into lower case")

	createCmd.AddCommand(clientDSCmd, tangoDSCmd, deviceDSCmd, onlineDSCmd, onlineCPCmd, stdCompCmd, compCmd, compareCmd)
	rootCmd.AddCommand(createCmd)
}
