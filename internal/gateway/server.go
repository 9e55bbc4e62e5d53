package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/evogate/internal/config"
	"github.com/nao1215/evogate/internal/evolution"
	"github.com/nao1215/evogate/pkg/event"
	"github.com/nao1215/evogate/pkg/middleware"
	"github.com/nao1215/evogate/pkg/pubsub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// ServiceName はサービス名。
	ServiceName = "evogate"
	// DefaultVersion はバージョン未指定時に報告するバージョン。
	DefaultVersion = "1.0.0"
	// DocumentationURL は上流サービスのドキュメント。
	DocumentationURL = "https://github.com/EvolutionAPI/evolution-api"

	// shutdownTimeout はグレースフルシャットダウンの待ち時間の上限。
	shutdownTimeout = 10 * time.Second
	// contentTypeJSON はエンベロープのContent-Type。
	contentTypeJSON = "application/json; charset=utf-8"
)

// Server はEvolution APIの前段に立つゲートウェイのHTTPサーバー。
// リクエストごとに認可、ルート解決、上流への転送、エンベロープへの変換を順に行う。
type Server struct {
	// cfg は起動時に構築した設定。
	cfg config.Config
	// router はGinのHTTPルーター。
	router *gin.Engine
	// registry は外部ルートの解決に使うレジストリ。
	registry *Registry
	// client は上流サービスのクライアント。
	client *evolution.Client
	// publisher は上流呼び出しのイベントの発行先。
	publisher pubsub.Publisher
	// logger は構造化ロガー。
	logger *slog.Logger
	// promRegistry はメトリクスの登録先。
	promRegistry *prometheus.Registry
	// metrics はゲートウェイのメトリクス。
	metrics *Metrics
	// now は現在時刻を返す。
	now func() time.Time
	// version は報告するバージョン。
	version string
}

// Option はServerの生成オプション。
type Option func(*Server)

// WithUpstream は上流クライアントを差し替える。
func WithUpstream(client *evolution.Client) Option {
	return func(s *Server) { s.client = client }
}

// WithPublisher はイベントの発行先を設定する。
func WithPublisher(p pubsub.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRegistry はメトリクスの登録先を設定する。
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.promRegistry = reg }
}

// WithVersion は報告するバージョンを設定する。
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// NewServer は設定から新しいゲートウェイサーバーを生成する。
// ルートの重複が見つかった場合はエラーを返す。
func NewServer(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		publisher: pubsub.Discard{},
		logger:    slog.Default(),
		now:       time.Now,
		version:   DefaultVersion,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = evolution.NewClient(evolution.Config{
			BaseURL: cfg.UpstreamURL,
			APIKey:  cfg.UpstreamAPIKey,
			Timeout: cfg.Timeout,
		})
	}
	if s.promRegistry == nil {
		s.promRegistry = prometheus.NewRegistry()
		s.promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	s.metrics = NewMetrics(s.promRegistry)

	registry, err := NewRegistry(evolutionRoutes(s.client)...)
	if err != nil {
		return nil, fmt.Errorf("ルートの登録に失敗: %w", err)
	}
	s.registry = registry
	s.router = s.setupRouter()

	return s, nil
}

// Routes は登録済みのルート一覧を返す。
func (s *Server) Routes() []Route {
	return s.registry.Routes()
}

// ServeHTTP はhttp.Handlerを実装する。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run は設定されたポートでHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("ポート %d のリッスンに失敗: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve はlnでHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("ゲートウェイを起動します",
		slog.String("addr", ln.Addr().String()),
		slog.String("upstream", s.client.BaseURL()),
		slog.Bool("secret_configured", s.cfg.APISecret != ""),
		slog.Int("routes", len(s.registry.routes)),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーが停止しました: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("ゲートウェイを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTPサーバーが停止しました: %w", err)
	}
	return nil
}

// setupRouter はミドルウェアとルーティングを設定したGinエンジンを返す。
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.HandleMethodNotAllowed = true

	router.Use(middleware.Recovery(s.logger, s.respondInternal))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(s.logger))
	router.Use(middleware.CORS(s.cfg.CORSOrigins))
	router.Use(middleware.BodyLimit(s.cfg.MaxBodyBytes))

	guard := middleware.SharedSecret(middleware.NewGuard(s.cfg.APISecret), s.respondUnauthorized)

	// ヘルスチェック（認証不要）
	router.GET("/health", s.handleHealth())

	router.GET("/info", guard, s.handleInfo())
	if s.cfg.MetricsEnabled {
		router.GET("/metrics", guard, gin.WrapH(promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{})))
	}

	// /api配下はすべて認可してからレジストリで解決する
	api := router.Group("/api", guard)
	api.Any("/*path", s.handleDispatch())

	router.NoRoute(s.respondNotFound)
	router.NoMethod(s.respondNotFound)

	return router
}

// handleDispatch はレジストリでルートを解決し、上流に1回だけ転送してエンベロープを返すハンドラを返す。
func (s *Server) handleDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		route, params, ok := s.registry.Resolve(c.Request.Method, c.Request.URL.EscapedPath())
		if !ok {
			s.respondNotFound(c)
			return
		}

		start := time.Now()
		payload, err := route.Handler(c, params)
		elapsed := time.Since(start)

		if err != nil {
			f := classify(err)
			s.writeFailure(c, route.Pattern, f)
			switch {
			case f.forwarded():
				s.logger.Warn("上流呼び出しに失敗しました",
					slog.String("operation", route.Operation.Name),
					slog.String("kind", string(f.Kind)),
					slog.Int("upstream_status", f.UpstreamStatus),
					slog.String("request_id", middleware.GetRequestID(c)),
					slog.Any("error", f.Err),
				)
				s.metrics.observeUpstream(route.Operation.Name, string(f.Kind), elapsed)
				s.emit(c, route, params, event.TypeUpstreamCallFailed, event.UpstreamCallFailedData{
					Method:         c.Request.Method,
					Route:          route.Pattern,
					Kind:           string(f.Kind),
					UpstreamStatus: f.UpstreamStatus,
					Message:        f.Message,
					DurationMS:     elapsed.Milliseconds(),
				})
			case f.Kind == KindInternal:
				s.logger.Error("リクエストの処理に失敗しました",
					slog.String("operation", route.Operation.Name),
					slog.String("request_id", middleware.GetRequestID(c)),
					slog.Any("error", f.Err),
				)
			}
			return
		}

		s.writeSuccess(c, route.Pattern, payload)
		s.metrics.observeUpstream(route.Operation.Name, "ok", elapsed)
		s.emit(c, route, params, event.TypeUpstreamCallSucceeded, event.UpstreamCallSucceededData{
			Method:     c.Request.Method,
			Route:      route.Pattern,
			DurationMS: elapsed.Milliseconds(),
		})
	}
}

// emit は上流呼び出しのイベントを発行する。発行の失敗はレスポンスに影響しない。
func (s *Server) emit(c *gin.Context, route *Route, params Params, eventType event.Type, data any) {
	ev, err := event.New(eventType, route.Operation.Name, params[slotInstance], middleware.GetRequestID(c), data)
	if err == nil {
		err = s.publisher.Publish(context.WithoutCancel(c.Request.Context()), ev)
	}
	if err == nil {
		return
	}
	s.metrics.EventPublishFailures.Inc()
	attrs := []any{
		slog.String("event_type", string(eventType)),
		slog.String("operation", route.Operation.Name),
		slog.Any("error", err),
	}
	if ev != nil {
		// 発行できなかったイベントの内容
		if payload, derr := event.DecodeData[map[string]any](ev); derr == nil {
			attrs = append(attrs, slog.String("event_id", ev.ID), slog.Any("data", *payload))
		}
	}
	s.logger.Warn("イベントの発行に失敗しました", attrs...)
}

// healthStatus はヘルスチェックの応答。
type healthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Port      int    `json:"port"`
}

// handleHealth はヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.writeSuccess(c, c.FullPath(), mustJSON(healthStatus{
			Status:    "ok",
			Timestamp: s.now().UTC().Format(timestampLayout),
			Service:   ServiceName,
			Version:   s.version,
			Port:      s.cfg.Port,
		}))
	}
}

// routeInfo はルート一覧の1要素。
type routeInfo struct {
	Method    string `json:"method"`
	Pattern   string `json:"pattern"`
	Operation string `json:"operation"`
}

// serviceInfo はサービス情報の応答。
type serviceInfo struct {
	Service            string            `json:"service"`
	Version            string            `json:"version"`
	Port               int               `json:"port"`
	EvolutionAPIURL    string            `json:"evolutionApiUrl"`
	AvailableEndpoints map[string]string `json:"availableEndpoints"`
	Documentation      string            `json:"documentation"`
	Routes             []routeInfo       `json:"routes"`
}

// handleInfo はサービス情報とルート一覧を返すハンドラを返す。
func (s *Server) handleInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		families := make(map[string]string)
		for _, p := range s.registry.Prefixes() {
			families[path.Base(p)] = p + "/*"
		}
		routes := make([]routeInfo, 0, len(s.registry.routes))
		for _, r := range s.registry.routes {
			routes = append(routes, routeInfo{Method: r.Method, Pattern: r.Pattern, Operation: r.Operation.Name})
		}
		s.writeSuccess(c, c.FullPath(), mustJSON(serviceInfo{
			Service:            ServiceName,
			Version:            s.version,
			Port:               s.cfg.Port,
			EvolutionAPIURL:    s.client.BaseURL(),
			AvailableEndpoints: families,
			Documentation:      DocumentationURL,
			Routes:             routes,
		}))
	}
}

// respondUnauthorized は認可失敗のエンベロープを返す。
func (s *Server) respondUnauthorized(c *gin.Context) {
	s.metrics.AuthDenied.Inc()
	s.writeFailure(c, c.FullPath(), unauthorized())
}

// respondNotFound はルート未一致のエンベロープを返す。
func (s *Server) respondNotFound(c *gin.Context) {
	s.writeFailure(c, unmatchedRoute, routeNotFound(s.registry.Prefixes()))
}

// respondInternal はパニック時のエンベロープを返す。
func (s *Server) respondInternal(c *gin.Context) {
	s.writeFailure(c, c.FullPath(), internal(errors.New("パニックが発生しました")))
}

// writeSuccess は成功エンベロープを書き込む。
func (s *Server) writeSuccess(c *gin.Context, route string, data json.RawMessage) {
	c.Data(http.StatusOK, contentTypeJSON, encodeSuccess(data))
	s.metrics.observeRequest(c.Request.Method, route, http.StatusOK)
}

// writeFailure は失敗エンベロープを書き込む。
func (s *Server) writeFailure(c *gin.Context, route string, f *Failure) {
	status := f.HTTPStatus()
	c.Data(status, contentTypeJSON, encodeError(f, s.now()))
	s.metrics.observeRequest(c.Request.Method, route, status)
}
