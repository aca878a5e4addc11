package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nexdatas/nxstools/internal/datawriter"
	"github.com/nexdatas/nxstools/internal/kind"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/tasks"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var writerCmd = &cobra.Command{
	Use:   "writer <command> [argument]",
	Short: "Drive the NeXus data writer",
	Long: `Drive the NeXus data writer through one file lifecycle step.

Commands:
  openfile <file>      open a NeXus file
  setdata <json>       set the global JSON data
  openentry <xml>      open an entry described by the XML settings
  record <json>        write one step with the JSON data
  closeentry           close the entry
  closefile            close the file
  servers [host:port]  exported data writers

Standard input, when piped, is passed as the argument.`,
	RunE: func(cmd *cobra.Command, argv []string) error {
		if len(argv) == 0 {
			return cmd.Help()
		}

		in, err := piped(cmd.InOrStdin())
		if err != nil {
			return err
		}

		rest := append([]string{}, argv[1:]...)
		if in = strings.TrimSpace(in); in != "" {
			rest = append(rest, in)
		}

		if strings.EqualFold(argv[0], kind.ServersStr) {
			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				return writerServers(ctx, e, cmd.OutOrStdout(), rest)
			})
		}

		command, err := kind.WriterCommandFromString(argv[0])
		if err != nil {
			return err
		}

		return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
			w, err := e.dataWriter(ctx, args.Server)
			if err != nil {
				return err
			}

			return datawriter.Perform(ctx, w, command, rest)
		})
	},
}

func writerServers(ctx context.Context, e *env, out io.Writer, rest []string) error {
	conn, err := e.connector(ctx)
	if err != nil {
		return err
	}

	host := ""
	if len(rest) > 0 {
		host = rest[0]
	}

	if conn, err = onHost(conn, host); err != nil {
		return err
	}

	result, err := datawriter.Servers(ctx, conn, e.config.Classes.DataWriter)
	if err != nil {
		return err
	}

	if result != "" {
		fmt.Fprintln(out, result)
	}

	return nil
}

type sessionFlags struct {
	fileName    string
	xmlFile     string
	components  []string
	globalData  string
	finalData   string
	recordsFile string
}

var sessionOpts = sessionFlags{}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Write a whole NeXus file: open, set data, record every step and close",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
			return runSession(ctx, e, afero.NewOsFs(), cmd.OutOrStdout(), &sessionOpts)
		})
	},
}

func runSession(ctx context.Context, e *env, fs afero.Fs, out io.Writer, opts *sessionFlags) error {
	if opts.fileName == "" {
		return errors.Wrap(model.ErrMissingParameter, "--file is required")
	}

	xml, err := sessionXML(ctx, e, fs, opts)
	if err != nil {
		return err
	}

	records, err := readRecords(fs, opts.recordsFile)
	if err != nil {
		return err
	}

	w, err := e.dataWriter(ctx, args.Server)
	if err != nil {
		return err
	}

	session := &tasks.Session{
		FileName:    opts.fileName,
		GlobalData:  opts.globalData,
		XMLSettings: xml,
		Records:     records,
		FinalData:   opts.finalData,
	}

	logger := e.component("session")
	logger.WithField("writer", w.Name()).Info("session started")

	runner := tasks.NewTaskRunner(&tasks.LogPublisher{Logger: logger}, tasks.NewSessionTask(session))
	runErr := runner.Run(ctx, w)

	status, err := runner.Status().Marshal()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, string(status))

	return runErr
}

// sessionXML reads the entry settings from a file, or merges them from
// components on the configuration server.
func sessionXML(ctx context.Context, e *env, fs afero.Fs, opts *sessionFlags) (string, error) {
	switch {
	case opts.xmlFile != "" && len(opts.components) > 0:
		return "", errors.Wrap(model.ErrWrongParameter, "--xml and --components exclude each other")
	case opts.xmlFile != "":
		data, err := afero.ReadFile(fs, opts.xmlFile)
		if err != nil {
			return "", errors.Wrap(model.ErrWrongParameter, "read "+opts.xmlFile+": "+err.Error())
		}

		return string(data), nil
	case len(opts.components) > 0:
		server, err := e.configServer(ctx, "")
		if err != nil {
			return "", err
		}

		defer server.Close(ctx)

		return server.CreateConfiguration(ctx, opts.components)
	default:
		return "", errors.Wrap(model.ErrMissingParameter, "--xml or --components is required")
	}
}

// readRecords returns the non empty lines of file, one JSON document each.
func readRecords(fs afero.Fs, file string) ([]string, error) {
	if file == "" {
		return []string{}, nil
	}

	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return nil, errors.Wrap(model.ErrWrongParameter, "read "+file+": "+err.Error())
	}

	records := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := datawriter.ValidateJSON(line); err != nil {
			return nil, err
		}

		records = append(records, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(model.ErrParse, "read "+file+": "+err.Error())
	}

	return records, nil
}

func init() {
	for _, c := range kind.WriterCommands() {
		writerCmd.ValidArgs = append(writerCmd.ValidArgs, c.String())
	}

	writerCmd.ValidArgs = append(writerCmd.ValidArgs, kind.ServersStr)

	writerCmd.PersistentFlags().StringVarP(&args.Server, "server", "s", "", "data writer device name")

	sessionCmd.Flags().StringVarP(&sessionOpts.fileName, "file", "f", "", "NeXus file to write")
	sessionCmd.Flags().StringVarP(&sessionOpts.xmlFile, "xml", "x", "", "file with the XML settings of the entry")
	sessionCmd.Flags().StringSliceVarP(&sessionOpts.components, "components", "c", nil, "components merged into the entry settings")
	sessionCmd.Flags().StringVarP(&sessionOpts.globalData, "global", "g", "", "JSON data set before the entry is opened")
	sessionCmd.Flags().StringVarP(&sessionOpts.finalData, "final", "l", "", "JSON data set before the entry is closed")
	sessionCmd.Flags().StringVarP(&sessionOpts.recordsFile, "records", "r", "", "file with one JSON record per line")

	writerCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(writerCmd)
}
