package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/personar/profile-service/internal/pkg/config"
	"github.com/personar/profile-service/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "personar",
	Short: "Profile service with face-embedding lookup",
	Long: `personar serves user profiles, credentials and a nearest-neighbour
lookup over enrolled face embeddings. The webcam command streams camera
frames as MJPEG for the capture client.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the environment and initialises the global logger.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "personar",
	})
	return cfg, nil
}
