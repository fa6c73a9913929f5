package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/psds-microservice/consultation-service/internal/config"
	"github.com/psds-microservice/consultation-service/internal/database"
	"github.com/psds-microservice/consultation-service/internal/handler"
	"github.com/psds-microservice/consultation-service/internal/kafka"
	"github.com/psds-microservice/consultation-service/internal/router"
	"github.com/psds-microservice/consultation-service/internal/searchindex"
	"github.com/psds-microservice/consultation-service/internal/service"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

// API приложение: HTTP-сервер (режим api).
type API struct {
	cfg      *config.Config
	log      *logger.Logger
	httpSrv  *http.Server
	producer *kafka.Producer
}

// NewAPI валидирует конфиг, применяет миграции и собирает зависимости.
func NewAPI(cfg *config.Config, log *logger.Logger) (*API, error) {
	log = logger.OrGlobal(log)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	threadSvc := service.NewThreadService(db)
	contentSvc := service.NewContentService(db)
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicThread, log)
	searchClient := searchindex.NewClient(cfg.SearchServiceURL, log)

	var events kafka.ThreadEventProducer
	if producer.Enabled() {
		events = producer
	} else {
		log.Info("kafka disabled: KAFKA_BROKERS not set")
	}

	h := router.New(router.Deps{
		Health:    handler.NewHealthHandler(sqlDB),
		Threads:   handler.NewThreadHandler(threadSvc, events, searchClient, log),
		Content:   handler.NewContentHandler(contentSvc, log),
		Log:       log,
		JWTSecret: cfg.JWTSecret,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:      cfg,
		log:      log,
		httpSrv:  httpSrv,
		producer: producer,
	}, nil
}

// Run запускает HTTP-сервер, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info("HTTP server listening",
		zap.String("addr", a.httpSrv.Addr),
		zap.String("swagger", base+"/swagger"),
		zap.String("health", base+"/health"),
		zap.String("metrics", base+"/metrics"),
		zap.String("api", base+"/api/v1/"),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := a.producer.Close(); err != nil {
		a.log.Warn("kafka close", zap.Error(err))
	}
	a.log.Info("HTTP server stopped")
	return nil
}
