package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/evogate/internal/config"
	"github.com/nao1215/evogate/internal/gateway"
	"github.com/nao1215/evogate/pkg/pubsub"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newServeCmd はゲートウェイを起動するコマンドを生成する。
func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			publisher, err := newPublisher(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := publisher.Close(); err != nil {
					logger.Warn("パブリッシャーのクローズに失敗しました", slog.Any("error", err))
				}
			}()

			server, err := gateway.NewServer(cfg,
				gateway.WithLogger(logger),
				gateway.WithPublisher(publisher),
				gateway.WithVersion(Version),
			)
			if err != nil {
				return err
			}
			return server.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.Int("port", 3002, "listen port")
	flags.String("upstream-url", "", "Evolution API base URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag(config.KeyPort, flags.Lookup("port"))
	_ = v.BindPFlag(config.KeyUpstreamURL, flags.Lookup("upstream-url"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	return cmd
}

// newPublisher はAMQP_URLが設定されていればRabbitMQのパブリッシャーを、なければ破棄するパブリッシャーを返す。
func newPublisher(cfg config.Config, logger *slog.Logger) (pubsub.Publisher, error) {
	if cfg.AMQPURL == "" {
		return pubsub.Discard{}, nil
	}
	p, err := pubsub.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("イベントをRabbitMQに発行します", slog.String("exchange", cfg.AMQPExchange))
	return p, nil
}
