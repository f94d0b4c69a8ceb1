package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/personar/profile-service/internal/core/domain"
)

// VectorIndex stores one row per vector in face_embeddings and searches it
// through the pgvector HNSW index. Row ids double as insertion sequence.
type VectorIndex struct {
	db         *sql.DB
	candidates int
}

func NewVectorIndex(db *sql.DB, candidates int) *VectorIndex {
	if candidates < 1 {
		candidates = 10
	}
	return &VectorIndex{db: db, candidates: candidates}
}

// Register replaces the user's vectors in a single transaction.
func (x *VectorIndex) Register(ctx context.Context, userID string, set domain.EmbeddingSet) error {
	for i, v := range set {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("register vector %d: %w", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM face_embeddings WHERE user_id = $1`, userID); err != nil {
		return classify("delete embeddings", err)
	}

	for i, v := range set {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO face_embeddings (user_id, position, embedding) VALUES ($1, $2, $3)`,
			userID, i, pgvector.NewVector([]float32(v)),
		)
		if err != nil {
			return classify("insert embedding", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit embeddings", err)
	}
	return nil
}

// Query runs the approximate search with hnsw.ef_search pinned to the
// candidate budget, then rescores the returned rows with raw cosine.
func (x *VectorIndex) Query(ctx context.Context, v domain.Vector) (domain.Match, bool, error) {
	if err := v.Validate(); err != nil {
		return domain.Match{}, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := x.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return domain.Match{}, false, classify("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", x.candidates)); err != nil {
		return domain.Match{}, false, classify("set ef_search", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_id, embedding
		FROM face_embeddings
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, pgvector.NewVector([]float32(v)), x.candidates)
	if err != nil {
		return domain.Match{}, false, classify("query similar embeddings", err)
	}
	defer rows.Close()

	var cands []domain.Candidate
	for rows.Next() {
		var (
			id     int64
			userID string
			vec    pgvector.Vector
		)
		if err := rows.Scan(&id, &userID, &vec); err != nil {
			return domain.Match{}, false, fmt.Errorf("scan embedding: %w", err)
		}
		cands = append(cands, domain.Candidate{
			UserID: userID,
			Seq:    id,
			Score:  domain.CosineSimilarity(vec.Slice(), v),
		})
	}
	if err := rows.Err(); err != nil {
		return domain.Match{}, false, classify("iterate embeddings", err)
	}

	m, ok := domain.BestCandidate(cands)
	return m, ok, nil
}

func (x *VectorIndex) Len(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT count(*) FROM face_embeddings`).Scan(&n); err != nil {
		return 0, classify("count embeddings", err)
	}
	return n, nil
}
