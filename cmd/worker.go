package cmd

import (
	"fader/config"
	"fader/logger"
	"fader/queue"
	"fader/storage"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Runs the asynq worker that sweeps stored objects whose inline deletion failed.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})

		if err := storage.InitMinio(cfg); err != nil {
			logger.Fatal("failed to initialize minio", logger.ErrorField(err))
		}

		if err := queue.RunWorker(cfg, storage.DefaultObjectStore()); err != nil {
			logger.Fatal("worker stopped", logger.ErrorField(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
