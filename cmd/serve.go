package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/metrics"
	"github.com/spigell/skill-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching engine over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}

func serve(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	config, err := getConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		config.Server.Addr = addr
	}

	log.Info("starting the skill-matcher", zap.String("version", version))

	m := metrics.New()

	eng, closeEngine, err := buildEngine(ctx, config, log, m, nil)
	if err != nil {
		return err
	}
	defer closeEngine()

	srv := server.New(log.Named("http"), m, eng, server.Config{
		Addr:          config.Server.Addr,
		ReadTimeout:   config.Server.ReadTimeout,
		WriteTimeout:  config.Server.WriteTimeout,
		LegacyJSON:    config.Server.LegacyJSON,
		MaxUploadSize: config.Extraction.MaxFileSize,
	})

	return srv.Run(ctx)
}
