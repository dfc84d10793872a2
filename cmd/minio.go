package cmd

import (
	"fader/config"
	"fader/storage"

	"github.com/spf13/cobra"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the object storage bucket",
	Long:  `Lists stored audio objects and prints bucket usage, optionally filtered by key prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := storage.InitMinio(cfg); err != nil {
			return err
		}
		return storage.PrintBucketStatus(cfg.MinioBucket, minioPrefix)
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "object key prefix to filter by")
	rootCmd.AddCommand(minioCmd)
}
