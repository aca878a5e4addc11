package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nexdatas/nxstools/internal/configserver"
	"github.com/nexdatas/nxstools/internal/kind"
	"github.com/spf13/cobra"
)

var configOpts = configserver.Options{}

var configCmd = &cobra.Command{
	Use:   "config <command> [names...]",
	Short: "Query the NeXus configuration server",
	Long: `Query the NeXus configuration server.

Commands:
  list                 names of the stored components, or datasources with -d
  show <name...>       XML of the components, or datasources with -d
  get <name...>        configuration merged from the components
  sources <name>       datasources of a component
  record <name>        records of a datasource with -d, or of a component
  servers [host:port]  exported configuration servers

Further names are read from standard input when it is piped.`,
	RunE: func(cmd *cobra.Command, argv []string) error {
		if len(argv) == 0 {
			return cmd.Help()
		}

		command, err := kind.ConfigCommandFromString(argv[0])
		if err != nil {
			return err
		}

		in, err := piped(cmd.InOrStdin())
		if err != nil {
			return err
		}

		names := append([]string{}, argv[1:]...)
		names = append(names, strings.Fields(in)...)

		return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
			return runConfig(ctx, e, cmd.OutOrStdout(), command, names)
		})
	},
}

func runConfig(ctx context.Context, e *env, out io.Writer, command kind.ConfigCommand, names []string) error {
	var (
		result string
		err    error
	)

	if command == kind.Servers {
		conn, cerr := e.connector(ctx)
		if cerr != nil {
			return cerr
		}

		host := ""
		if len(names) > 0 {
			host = names[0]
		}

		if conn, cerr = onHost(conn, host); cerr != nil {
			return cerr
		}

		result, err = configserver.Servers(ctx, conn, e.config.Classes.ConfigServer, configOpts)
	} else {
		server, cerr := e.configServer(ctx, args.Server)
		if cerr != nil {
			return cerr
		}

		defer server.Close(ctx)

		result, err = configserver.Perform(ctx, server, command, names, configOpts)
	}

	if err != nil {
		return err
	}

	if result != "" {
		fmt.Fprintln(out, result)
	}

	return nil
}

func init() {
	for _, c := range kind.ConfigCommands() {
		configCmd.ValidArgs = append(configCmd.ValidArgs, c.String())
	}

	configCmd.Flags().BoolVarP(&configOpts.DataSources, "datasources", "d", false, "act on datasources instead of components")
	configCmd.Flags().BoolVarP(&configOpts.Mandatory, "mandatory", "m", false, "act on the mandatory components")
	configCmd.Flags().BoolVarP(&configOpts.NoNewLines, "no-newlines", "n", false, "separate the results with spaces")
	configCmd.Flags().StringVarP(&args.Server, "server", "s", "", "configuration server device name")

	rootCmd.AddCommand(configCmd)
}
