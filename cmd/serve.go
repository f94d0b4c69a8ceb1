package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/personar/profile-service/internal/api"
	"github.com/personar/profile-service/internal/core/service"
	rediscache "github.com/personar/profile-service/internal/infrastructure/db/redis"
	httpserver "github.com/personar/profile-service/internal/infrastructure/http"
	"github.com/personar/profile-service/internal/infrastructure/identity"
	"github.com/personar/profile-service/internal/infrastructure/queue"
	"github.com/personar/profile-service/internal/pkg/keylock"
	"github.com/personar/profile-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the profile API",
	Long: `Start the profile API. With VECTOR_BACKEND=memory the in-process index
is rebuilt from the user store before the listener opens.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
}

// @title                       personar profile API
// @version                     1.0
// @description                 Profiles, credentials and face-embedding lookup.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	log := logger.Get()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close(context.Background())

	if !b.persistent() {
		if _, err := service.Reindex(ctx, b.users, b.index, logger.Component("reindex")); err != nil {
			return fmt.Errorf("warm up vector index: %w", err)
		}
	}

	locks := &keylock.Striped{}
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Enroll.Workers, b.users, b.index, locks, logger.Component("reconciler"))
	dispatcher.Start(workerCtx)
	defer func() {
		cancelWorkers()
		dispatcher.Wait()
	}()

	creds := service.NewCredentialStore(cfg.JWTSecret, cfg.TokenTTL)
	opts := service.Options{
		Enroller: dispatcher,
		Locks:    locks,
		LinkBase: cfg.PublicLinkBase,
	}
	if cfg.IdentityAssertionKey != "" {
		verifier, err := identity.NewAssertionVerifierFromHex(cfg.IdentityAssertionKey)
		if err != nil {
			return err
		}
		opts.Identity = verifier
	} else {
		log.Info().Msg("IDENTITY_ASSERTION_KEY not set; external signup and login disabled")
	}
	if b.redis != nil {
		opts.Cache = rediscache.NewProfileCache(b.redis, cfg.Redis.CacheTTL)
	}

	profiles := service.NewProfileService(b.users, b.index, creds, opts, logger.Component("profile"))

	router, err := api.NewRouter(api.Deps{
		Service: profiles,
		Tokens:  creds,
		Health:  b.pingers(),
		Log:     logger.Component("http"),
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := httpserver.NewServer(":"+cfg.Port, router, 15*time.Second, 30*time.Second, log)
	return serveUntilDone(ctx, srv)
}

// serveUntilDone runs srv until ctx is cancelled or the listener fails, then
// drains in-flight requests.
func serveUntilDone(ctx context.Context, srv *httpserver.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
