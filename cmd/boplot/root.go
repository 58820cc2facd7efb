package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BOSS-tools/boplot/internal/config"
	"github.com/BOSS-tools/boplot/internal/dispatcher"
	"github.com/BOSS-tools/boplot/internal/export"
	"github.com/BOSS-tools/boplot/internal/logging"
	"github.com/BOSS-tools/boplot/internal/monitor"
	"github.com/BOSS-tools/boplot/internal/server"
	"github.com/BOSS-tools/boplot/pkg/core"
)

func newRootCmd() *cobra.Command {
	a := newApp()

	root := &cobra.Command{
		Use:          appName,
		Short:        "Build-order timeline planner",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.loadConfig()
			if err := a.setupLogging(cmd.ErrOrStderr(), cmd.Name() == "serve"); err != nil {
				return errors.Join(err, a.close())
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "directory containing "+config.FileName)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logLevel (trace, debug, info, warn, error)")

	root.AddCommand(
		newLayoutCmd(a),
		newEncodeCmd(a),
		newDecodeCmd(a),
		newExportCmd(a),
		newTypesCmd(a),
		newSchemaCmd(a),
		newServeCmd(a),
	)
	return root
}

// runE releases whatever the command opened once it returns, whether or
// not it failed.
func (a *app) runE(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		return errors.Join(err, a.close())
	}
}

// readInput decodes JSON from the file named by args[0], or stdin when no
// file is given or the name is "-".
func readInput(cmd *cobra.Command, args []string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

func writeOutput(cmd *cobra.Command, v any, pretty bool) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func newLayoutCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "layout [plots.json]",
		Short: "Compute timeline geometry for a list of plots",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			var plots []core.Plot
			if err := readInput(cmd, args, &plots); err != nil {
				return err
			}
			svc, err := a.newService(cmd.Context(), serviceOptions{})
			if err != nil {
				return err
			}
			layout, err := svc.Layout(cmd.Context(), plots)
			if err != nil {
				return err
			}
			return writeOutput(cmd, layout, pretty)
		}),
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func newEncodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encode [lists.json]",
		Short: "Serialize player lists into a configuration string",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			var lists core.PlayerLists
			if err := readInput(cmd, args, &lists); err != nil {
				return err
			}
			svc, err := a.newService(cmd.Context(), serviceOptions{})
			if err != nil {
				return err
			}
			cfg, err := svc.Encode(cmd.Context(), lists)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cfg)
			return err
		}),
	}
}

func newDecodeCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "decode <config>",
		Short: "Parse a configuration string into player lists",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(cmd.Context(), serviceOptions{})
			if err != nil {
				return err
			}
			lists, err := svc.Decode(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return writeOutput(cmd, lists, pretty)
		}),
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		pretty  bool
		fromCfg string
	)
	cmd := &cobra.Command{
		Use:   "export [lists.json]",
		Short: "Produce the engine input document for player lists",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(cmd.Context(), serviceOptions{})
			if err != nil {
				return err
			}

			var lists core.PlayerLists
			if fromCfg != "" {
				lists, err = svc.Decode(cmd.Context(), fromCfg)
				if err != nil {
					return err
				}
			} else if err := readInput(cmd, args, &lists); err != nil {
				return err
			}

			e, err := svc.Export(cmd.Context(), lists)
			if err != nil {
				return err
			}
			return writeOutput(cmd, e, pretty)
		}),
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().StringVar(&fromCfg, "config", "", "read the lists from a configuration string instead of JSON")
	return cmd
}

func newTypesCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "types <race>",
		Short: "List the selectable types of a race",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(cmd.Context(), serviceOptions{})
			if err != nil {
				return err
			}
			palette, err := svc.Palette(args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd, palette, pretty)
		}),
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the export document",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return writeOutput(cmd, export.Schema(), true)
		}),
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and the live editor websocket",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		}),
	}
}

func (a *app) serve(ctx context.Context) error {
	svc, err := a.newService(ctx, serviceOptions{storage: true, engine: true, metrics: true})
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	svc.RegisterHandlers(d)

	var srv *server.Server
	storageType := config.GetStorageConfig().Type
	log := logging.WithContext(a.logger, func() []slog.Attr {
		var clients int64
		if srv != nil {
			clients = srv.Clients()
		}
		return []slog.Attr{slog.String("storage", storageType), slog.Int64("wsClients", clients)}
	})
	srv = server.New(svc, d, config.GetServerConfig(), log)

	if viper.GetBool("monitor.enabled") {
		mon := a.newMonitor(srv, d, log)
		if err := mon.Start(ctx); err != nil {
			return err
		}
		defer mon.Stop()
	}

	log.Info("Starting server", "commands", len(d.Commands()))
	return srv.ListenAndServe(ctx)
}

func (a *app) newMonitor(srv *server.Server, d *dispatcher.Dispatcher, log *slog.Logger) *monitor.Service {
	statusPath := viper.GetString("monitor.statusFile")
	if statusPath == "" {
		statusPath = filepath.Join(viper.GetString("logsDir"), "status.json")
	}
	deps := monitor.Dependencies{
		Clients:    srv.Clients,
		Commands:   d.Commands,
		Logger:     log,
		StatusPath: statusPath,
		Interval:   viper.GetDuration("monitor.interval"),
	}
	if a.metrics != nil {
		deps.Metrics = a.metrics
	}
	return monitor.NewService(deps)
}
