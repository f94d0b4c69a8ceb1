package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/core/ports"
	"github.com/personar/profile-service/internal/core/service"
	"github.com/personar/profile-service/pkg/logger"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-register every stored embedding set in the vector index",
	Long: `Walk the user store and register each record's face embeddings with the
configured vector backend. Use it to repair the atlas or pgvector index after
failed registrations. With the memory backend the index lives inside the serve
process, so this only checks that every stored enrollment is valid.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close(context.Background())

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Registering users"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("users"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
	)

	n, err := service.Reindex(ctx, b.users, progressIndex{VectorIndex: b.index, bar: bar}, logger.Component("reindex"))
	_ = bar.Finish()
	if err != nil {
		return err
	}

	size, err := b.index.Len(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nRegistered %d users (%d vectors, backend %s)\n", n, size, cfg.Vector.Backend)
	return nil
}

// progressIndex ticks bar for every user registered.
type progressIndex struct {
	ports.VectorIndex
	bar *progressbar.ProgressBar
}

func (p progressIndex) Register(ctx context.Context, userID string, set domain.EmbeddingSet) error {
	if err := p.VectorIndex.Register(ctx, userID, set); err != nil {
		return err
	}
	return p.bar.Add(1)
}
