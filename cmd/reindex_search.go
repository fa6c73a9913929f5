package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/psds-microservice/consultation-service/internal/database"
	"github.com/psds-microservice/consultation-service/internal/kafka"
	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/internal/searchindex"
)

var reindexSearchCmd = &cobra.Command{
	Use:   "reindex-search",
	Short: "Reindex all threads into search. Prefers Kafka; falls back to HTTP if SEARCH_SERVICE_URL set.",
	RunE:  runReindexSearch,
}

func init() {
	rootCmd.AddCommand(reindexSearchCmd)
}

func runReindexSearch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	conn, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}

	var threads []model.Thread
	if err := conn.Order("id").Find(&threads).Error; err != nil {
		return fmt.Errorf("list threads: %w", err)
	}
	log.Info("reindex-search: found threads", zap.Int("count", len(threads)))

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	// сначала Kafka, потом HTTP
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicThread, log)
	defer producer.Close()
	if producer.Enabled() {
		log.Info("reindex-search: using Kafka")
		for i := range threads {
			producer.ProduceThreadEvent(ctx, kafka.EventThreadUpdated, kafka.ThreadEventPayload(&threads[i]))
			if (i+1)%50 == 0 || i == len(threads)-1 {
				log.Info("reindex-search: progress", zap.Int("sent", i+1), zap.Int("total", len(threads)))
			}
		}
		log.Info("reindex-search: done; search-service worker will index the events", zap.Int("sent", len(threads)))
		return nil
	}
	if cfg.SearchServiceURL != "" {
		log.Info("reindex-search: using HTTP")
		client := searchindex.NewClient(cfg.SearchServiceURL, log)
		failed := 0
		for i := range threads {
			if !client.IndexThread(ctx, &threads[i]) {
				failed++
			}
			if (i+1)%50 == 0 || i == len(threads)-1 {
				log.Info("reindex-search: progress", zap.Int("indexed", i+1), zap.Int("total", len(threads)))
			}
		}
		log.Info("reindex-search: done", zap.Int("indexed", len(threads)-failed), zap.Int("failed", failed))
		return nil
	}
	log.Warn("reindex-search: neither KAFKA_BROKERS nor SEARCH_SERVICE_URL set, nothing reindexed",
		zap.Int("found", len(threads)))
	return nil
}
