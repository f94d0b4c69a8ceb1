package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/personar/profile-service/internal/api"
	httpserver "github.com/personar/profile-service/internal/infrastructure/http"
	"github.com/personar/profile-service/internal/infrastructure/webcam"
	"github.com/personar/profile-service/pkg/logger"
)

var webcamCmd = &cobra.Command{
	Use:   "webcam",
	Short: "Stream camera frames as MJPEG on /video",
	Long: `Serve the frames found in WEBCAM_DIR as a multipart/x-mixed-replace
stream, cycling at WEBCAM_FPS and scaled down to WEBCAM_WIDTH.`,
	RunE: runWebcam,
}

func init() {
	rootCmd.AddCommand(webcamCmd)

	webcamCmd.Flags().String("dir", "", "Frame directory (overrides WEBCAM_DIR)")
	webcamCmd.Flags().String("port", "", "Port to listen on (overrides WEBCAM_PORT)")
}

func runWebcam(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.Webcam.Dir = dir
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Webcam.Port = port
	}
	log := logger.Component("webcam")

	source, err := webcam.OpenDir(cfg.Webcam.Dir, cfg.Webcam.FPS, cfg.Webcam.Width)
	if err != nil {
		return err
	}
	defer source.Close()

	log.Info().
		Str("dir", cfg.Webcam.Dir).
		Int("fps", cfg.Webcam.FPS).
		Int("max_width", cfg.Webcam.Width).
		Msg("frame source ready")

	router := api.NewWebcamRouter(source, log)
	// No write timeout: a stream lasts as long as the client stays.
	srv := httpserver.NewServer(":"+cfg.Webcam.Port, router, 15*time.Second, 0, log)
	return serveUntilDone(ctx, srv)
}
