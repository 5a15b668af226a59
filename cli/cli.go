package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opendap/olfs/components/handler"
	"github.com/opendap/olfs/core/bes"
)

const Version = "1.0.0"

func Run() {
	err := NewRootCommand(os.Stdout, os.Stderr).Execute()
	if err != nil {
		os.Exit(1)
	}
}

func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var configFile string
	rc := &cobra.Command{
		Use:   "olfs",
		Short: "OPeNDAP front end server.",
		Long: `olfs serves DAP, WCS and THREDDS requests on top of a Hyrax
Back End Server (BES).

The config is read from the file passed with --config, or from
` + defaultConfigFile + `.(yaml|json|toml) in ` + fmt.Sprint(configSearchDirs) + `.`,
		SilenceUsage: true,
	}
	rc.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file to read from.")
	rc.SetOut(stdout)
	rc.SetErr(stderr)

	rc.AddCommand(newServeCommand(&configFile))
	rc.AddCommand(newCacheCommand(&configFile))
	rc.AddCommand(newVersionCommand())
	return rc
}

func newServeCommand(configFile *string) *cobra.Command {
	var example, debug bool
	cmd := &cobra.Command{
		Use:   "serve [config]",
		Short: "Run the server.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if example {
				_, err := io.WriteString(cmd.OutOrStdout(), exampleConfig)
				return err
			}
			file := *configFile
			if len(args) > 0 {
				file = args[0]
			}
			return serve(cmd.Context(), file, debug)
		},
	}
	cmd.Flags().BoolVar(&example, "example", false, "Print example config and exit.")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log at debug level with development encoding.")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "olfs %s (DAP server %s)\n", Version, handler.ServerVersion)
		},
	}
}

func serve(ctx context.Context, file string, debug bool) error {
	conf, used, err := readConfig(file)
	if err != nil {
		return err
	}
	if debug {
		conf.Log = LogConfig{Level: "debug", Development: true}
	}
	log, err := newLogger(conf.Log)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("OLFS started", zap.String("version", Version), zap.String("config", used))
	zap.ReplaceGlobals(log)
	zap.RedirectStdLog(log)

	s, err := newServer(log, conf, afero.NewOsFs(), bes.DefaultSettings)
	if err != nil {
		log.Error("Server setup failed", zap.Error(err))
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go handleSignals(log, sigs, 2*conf.Server.ShutdownTimeout, cancel, func() {
		s.quit()
		cancel()
	})
	startReport(ctx, log, newServerMetrics(), conf.Server.ReportInterval)

	err = s.Run(ctx)
	if err != nil {
		log.Error("Server failed", zap.Error(err))
		return err
	}
	log.Info("Server stopped")
	return nil
}

// handleSignals waits for the first signal. SIGINT stops the server
// gracefully, but the process is killed if that takes longer than
// interruptTimeout or another signal comes. SIGTERM drops connections.
func handleSignals(log *zap.Logger, sigs <-chan os.Signal, interruptTimeout time.Duration, interrupt, quit func()) {
	sig, ok := <-sigs
	if !ok {
		return
	}
	switch sig {
	case syscall.SIGINT:
		log.Info("SIGINT received. Trying to stop gracefully.", zap.Duration("timeout", interruptTimeout))
		interrupt()
		select {
		case <-time.After(interruptTimeout):
			log.Fatal("Interrupt timeout exceeded")
		case sig, ok := <-sigs:
			if ok {
				log.Fatal("Another signal received. Quiting.", zap.Stringer("signal", sig))
			}
		}
	case syscall.SIGTERM:
		log.Info("SIGTERM received. Quiting.")
		quit()
	default:
		log.Info("Unexpected signal received. Quiting.", zap.Stringer("signal", sig))
		quit()
	}
}
