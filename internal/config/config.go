// Package config はゲートウェイの設定を読み込む。
//
// 設定は起動時に一度だけ構築し、参照で各コンポーネントに渡す。
// 値はフラグ、環境変数、設定ファイルの順に優先される。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// 設定キー。フラグ名と設定ファイルのキーを兼ねる。
const (
	KeyUpstreamURL    = "upstream.url"
	KeyUpstreamAPIKey = "upstream.api_key"
	KeyTimeoutMS      = "upstream.timeout_ms"
	KeyAPISecret      = "auth.api_secret"
	KeyCORSOrigin     = "server.cors_origin"
	KeyPort           = "server.port"
	KeyMaxBodyBytes   = "server.max_body_bytes"
	KeyLogLevel       = "log.level"
	KeyMetricsEnabled = "metrics.enabled"
	KeyAMQPURL        = "events.amqp_url"
	KeyAMQPExchange   = "events.amqp_exchange"
)

// envBindings は設定キーと環境変数名の対応。
var envBindings = map[string]string{
	KeyUpstreamURL:    "EVOLUTION_API_URL",
	KeyUpstreamAPIKey: "EVOLUTION_API_KEY",
	KeyTimeoutMS:      "TIMEOUT_MS",
	KeyAPISecret:      "API_SECRET",
	KeyCORSOrigin:     "CORS_ORIGIN",
	KeyPort:           "PORT",
	KeyMaxBodyBytes:   "MAX_BODY_BYTES",
	KeyLogLevel:       "LOG_LEVEL",
	KeyMetricsEnabled: "METRICS_ENABLED",
	KeyAMQPURL:        "AMQP_URL",
	KeyAMQPExchange:   "AMQP_EXCHANGE",
}

// Config はゲートウェイ全体の設定。
type Config struct {
	// UpstreamURL は上流サービスのベースURL。
	UpstreamURL string `validate:"required,url"`
	// UpstreamAPIKey は上流サービスに送る共有APIキー。
	UpstreamAPIKey string
	// Timeout は上流呼び出し1回あたりのタイムアウト。
	Timeout time.Duration `validate:"gt=0"`
	// APISecret はx-api-secretヘッダーに要求する共有シークレット。空なら認可しない。
	APISecret string
	// CORSOrigins は許可するオリジン。"*"はすべてのオリジン。
	CORSOrigins []string `validate:"dive,required"`
	// Port はリッスンポート。
	Port int `validate:"min=1,max=65535"`
	// MaxBodyBytes はリクエストボディの最大サイズ。
	MaxBodyBytes int64 `validate:"gt=0"`
	// LogLevel はログレベル。
	LogLevel string `validate:"oneof=debug info warn error"`
	// MetricsEnabled はPrometheusメトリクスを公開するかどうか。
	MetricsEnabled bool
	// AMQPURL はイベント発行先のRabbitMQのURL。空ならイベントを破棄する。
	AMQPURL string `validate:"omitempty,url"`
	// AMQPExchange はイベント発行先のexchange名。
	AMQPExchange string `validate:"required_with=AMQPURL"`
}

// SetDefaults はデフォルト値をviperに設定する。
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyUpstreamURL, "http://ia_evolution-api:8080")
	v.SetDefault(KeyUpstreamAPIKey, "")
	v.SetDefault(KeyTimeoutMS, 30000)
	v.SetDefault(KeyAPISecret, "")
	v.SetDefault(KeyCORSOrigin, "*")
	v.SetDefault(KeyPort, 3002)
	v.SetDefault(KeyMaxBodyBytes, 10<<20)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyAMQPURL, "")
	v.SetDefault(KeyAMQPExchange, "evogate.events")
}

// BindEnv は設定キーを環境変数に対応付ける。
func BindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("環境変数 %s のバインドに失敗: %w", env, err)
		}
	}
	return nil
}

// Load はviperから設定を組み立てて検証する。
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		UpstreamURL:    strings.TrimSpace(v.GetString(KeyUpstreamURL)),
		UpstreamAPIKey: v.GetString(KeyUpstreamAPIKey),
		Timeout:        time.Duration(v.GetInt64(KeyTimeoutMS)) * time.Millisecond,
		APISecret:      v.GetString(KeyAPISecret),
		CORSOrigins:    splitOrigins(v.GetString(KeyCORSOrigin)),
		Port:           v.GetInt(KeyPort),
		MaxBodyBytes:   v.GetInt64(KeyMaxBodyBytes),
		LogLevel:       strings.ToLower(v.GetString(KeyLogLevel)),
		MetricsEnabled: v.GetBool(KeyMetricsEnabled),
		AMQPURL:        v.GetString(KeyAMQPURL),
		AMQPExchange:   v.GetString(KeyAMQPExchange),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は構造体タグに従って設定を検証する。
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: %s %s の条件を満たしません", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("設定が不正です: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return nil
}

// SlogLevel はログレベルをslog.Levelに変換する。
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// splitOrigins はカンマ区切りのオリジン指定を分割する。
func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
