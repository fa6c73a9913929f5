package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/psds-microservice/consultation-service/internal/config"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "consultation-service",
	Short:         "Inquiries and vet consultations: threads, replies and the conversation gate",
	RunE:          runAPI,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

// setup загружает .env, конфиг и глобальный логгер; общий для всех команд.
func setup() (*config.Config, *logger.Logger, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../../.env") // корень репозитория при запуске из bin/
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.ForEnv(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	logger.SetGlobal(log)
	return cfg, log, nil
}
