package postgres

import (
	"context"
	"fmt"

	"github.com/fahry-ali/hadirku-deploy/internal/database"
	"github.com/fahry-ali/hadirku-deploy/internal/matcher"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepository provides PostgreSQL-backed face embedding storage.
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository.
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// LoadReferenceSet returns a fresh snapshot of every stored embedding,
// ordered by first-registration sequence so matcher tie-breaks are stable.
func (r *EmbeddingRepository) LoadReferenceSet(ctx context.Context) (matcher.ReferenceSet, error) {
	query := `
		SELECT identity, name, embedding, backend, dim
		FROM face_embeddings
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reference set: %w", err)
	}
	defer rows.Close()

	var refs matcher.ReferenceSet
	for rows.Next() {
		var ref matcher.Reference
		var vec pgvector.Vector
		if err := rows.Scan(&ref.Identity, &ref.Name, &vec, &ref.Backend, &ref.Dim); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		ref.Vector = vec.Slice()
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference set: %w", err)
	}
	return refs, nil
}

// HasEmbedding checks whether an identity has a registered face.
func (r *EmbeddingRepository) HasEmbedding(ctx context.Context, identity int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM face_embeddings WHERE identity = $1)", identity).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check embedding exists: %w", err)
	}
	return exists, nil
}

// SaveEmbedding stores the embedding for an identity, overwriting any
// previous one. seq is kept from the first registration so insertion order
// survives re-registration.
func (r *EmbeddingRepository) SaveEmbedding(ctx context.Context, emb database.StoredEmbedding) error {
	query := `
		INSERT INTO face_embeddings (identity, name, embedding, backend, dim, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (identity) DO UPDATE SET
			name = EXCLUDED.name,
			embedding = EXCLUDED.embedding,
			backend = EXCLUDED.backend,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		emb.Identity,
		emb.Name,
		pgvector.NewVector(emb.Vector),
		emb.Backend,
		emb.Dim,
	)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}
