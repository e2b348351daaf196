package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// version is set at build time via ldflags
var version = "dev"

// options are the global flags; set ones override the config file.
type options struct {
	configPath string
	logFile    string
	debug      bool
	executable string
	encoding   string
	source     string
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "config file (default is $HOME/.config/wingui/config.yaml)")
	fs.StringVar(&o.logFile, "log-file", "", "write structured logs to this file")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	fs.StringVar(&o.executable, "executable", "", "package manager binary (default winget)")
	fs.StringVar(&o.encoding, "encoding", "", "encoding of the package manager output (default utf-8)")
	fs.StringVar(&o.source, "source", "", "restrict queries to one winget source")
}

// app is everything a command needs, built once before it runs.
type app struct {
	config   *Config
	logger   *slog.Logger
	closeLog func() error
	winget   *Winget
	source   PackageSource
	streamer *Streamer
}

func newApp(opts *options, fs *pflag.FlagSet) (*app, error) {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if fs.Changed("log-file") {
		cfg.LogFile = opts.logFile
	}
	if fs.Changed("debug") {
		cfg.Debug = opts.debug
	}
	if fs.Changed("executable") {
		cfg.Executable = opts.executable
	}
	if fs.Changed("encoding") {
		cfg.Encoding = opts.encoding
	}
	if fs.Changed("source") {
		cfg.Source = opts.source
	}

	decoder, err := NewDecoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := newLogger(cfg.LogFile, cfg.Debug)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		"executable", cfg.Executable,
		"source", cfg.Source,
		"encoding", decoder.Name(),
	)

	w := NewWinget(cfg)
	return &app{
		config:   cfg,
		logger:   logger,
		closeLog: closeLog,
		winget:   w,
		source:   NewWingetSource(w, decoder),
		streamer: NewStreamer(decoder, logger),
	}, nil
}

func (a *app) modelOptions(send func(tea.Msg), query string) ModelOptions {
	return ModelOptions{
		Source:   a.source,
		Winget:   a.winget,
		Streamer: a.streamer,
		Logger:   a.logger,
		Send:     send,
		Query:    query,
	}
}

// runProgram starts a full-screen program. Workers reach the event loop
// through the relay, which is pointed at the program before it runs.
func runProgram(build func(send func(tea.Msg)) tea.Model) error {
	relay := newProgramRelay()
	p := tea.NewProgram(build(relay.Send), tea.WithAltScreen())
	relay.SetProgram(p)
	_, err := p.Run()
	return err
}

// newRootCmd assembles the command tree. Without a subcommand it opens
// the interactive search screen.
func newRootCmd() *cobra.Command {
	opts := &options{}
	var a *app

	root := &cobra.Command{
		Use:   "wingui [query]",
		Short: "Terminal front-end for winget",
		Long: `wingui - terminal front-end for the Windows Package Manager

Search packages, read their descriptions, and install, uninstall or
upgrade them while winget's output streams live into the window.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(opts, cmd.Flags())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runProgram(func(send func(tea.Msg)) tea.Model {
				return NewModel(a.modelOptions(send, query))
			})
		},
	}
	opts.register(root.PersistentFlags())

	appFn := func() *app { return a }
	root.AddCommand(
		newSearchCmd(appFn),
		newShowCmd(appFn),
		newInstallCmd(appFn, "install"),
		newInstallCmd(appFn, "uninstall"),
		newUpgradeCmd(appFn),
		newUpgradesCmd(appFn),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newSearchCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search packages and print the result table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a().source.Search(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, ErrNoResults) || (err == nil && len(records) == 0) {
				fmt.Fprintln(cmd.OutOrStdout(), "No packages found.")
				return nil
			}
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

// printRecords writes records as aligned columns
func printRecords(w io.Writer, records []PackageRecord) {
	nameW, idW, versionW := columnWidths(DefaultWidth)
	fmt.Fprintf(w, "%s  %s  %s\n", truncate("NAME", nameW), truncate("ID", idW), truncate("VERSION", versionW))
	for _, r := range records {
		fmt.Fprintf(w, "%s  %s  %s\n", truncate(r.Name, nameW), truncate(r.ID, idW), strings.TrimRight(truncate(r.Version, versionW), " "))
	}
}

func newShowCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the description of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a().source.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ParseDescription(text))
			return nil
		},
	}
}

// newInstallCmd builds install or uninstall. Several identifiers are
// run one after another in a single batch.
func newInstallCmd(a func() *app, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>...",
		Short: titleCase(action) + " packages by exact identifier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := a()
			build := env.winget.Install
			if action == "uninstall" {
				build = env.winget.Uninstall
			}
			sink := newTerminalSink(cmd.OutOrStdout())
			guard := env.busyLogger(action)

			if len(args) == 1 {
				if outcome := env.streamer.Run(cmd.Context(), build(args[0]), sink, guard); !outcome.OK() {
					return fmt.Errorf("%s %s failed", action, args[0])
				}
				return nil
			}

			reqs := make([]CommandRequest, 0, len(args))
			for _, id := range args {
				reqs = append(reqs, build(id))
			}
			return batchError(action, args, env.streamer.RunBatch(cmd.Context(), reqs, sink, guard))
		},
	}
}

// batchError names every identifier whose command did not succeed
func batchError(action string, ids []string, outcomes []Outcome) error {
	var failed []string
	for i, o := range outcomes {
		if !o.OK() {
			failed = append(failed, ids[i])
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s failed for %s", action, strings.Join(failed, ", "))
	}
	return nil
}

// busyLogger stands in for the disabled controls of the interactive
// screens.
func (a *app) busyLogger(action string) BusyGuard {
	return BusyFunc(func(busy bool) {
		a.logger.Debug("controls", "action", action, "busy", busy)
	})
}

func newUpgradeCmd(a func() *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "upgrade [id...]",
		Short: "Upgrade packages, or every package with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := a()
			ids := args
			if all {
				candidates, err := env.source.Upgrades(cmd.Context())
				if err != nil && !errors.Is(err, ErrNoResults) {
					return err
				}
				ids = ids[:0:0]
				for _, c := range candidates {
					ids = append(ids, c.ID)
				}
			}
			if len(ids) == 0 {
				if all {
					fmt.Fprintln(cmd.OutOrStdout(), "All packages are up to date.")
					return nil
				}
				return errors.New("no package identifiers given (use --all to upgrade everything)")
			}

			sink := newTerminalSink(cmd.OutOrStdout())
			outcomes := env.streamer.RunBatch(cmd.Context(), env.winget.UpgradeAll(ids), sink, env.busyLogger("upgrade"))
			return batchError("upgrade", ids, outcomes)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "upgrade every package with an update available")
	return cmd
}

func newUpgradesCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrades",
		Short: "Open the interactive upgrade manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(func(send func(tea.Msg)) tea.Model {
				return NewUpgradeModel(a().modelOptions(send, ""))
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "wingui", version)
		},
	}
}
