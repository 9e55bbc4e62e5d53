package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/evogate/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ビルド時に-ldflagsで設定する。
var (
	Version = "1.0.0"
	Commit  = "none"
)

// newRootCmd はルートコマンドを生成する。
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "evogate",
		Short:         "Authenticated forwarding gateway for the Evolution API",
		Version:       fmt.Sprintf("%s (commit %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	root.AddCommand(newServeCmd(v), newRoutesCmd(v), newVersionCmd())
	return root
}

// initConfig はデフォルト値、環境変数、設定ファイルをviperに読み込む。
func initConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)
	if err := config.BindEnv(v); err != nil {
		return err
	}
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("設定ファイル %s の読み込みに失敗: %w", cfgFile, err)
	}
	return nil
}

// newLogger は設定されたレベルのJSONロガーを生成する。
func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// newVersionCmd はバージョンを表示するコマンドを生成する。
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "evogate %s (commit %s)\n", Version, Commit)
		},
	}
}
