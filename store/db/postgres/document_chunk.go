package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/store"
)

func (d *DB) CreateDocumentChunk(ctx context.Context, create *store.DocumentChunk) (*store.DocumentChunk, error) {
	stmt := `
		INSERT INTO document_chunk (document_id, chunk_index, content, embedding, created_ts)
		VALUES (` + placeholders(5) + `)
		RETURNING id
	`

	vector := pgvector.NewVector(create.Embedding)
	if err := d.db.QueryRowContext(ctx, stmt,
		create.DocumentID,
		create.ChunkIndex,
		create.Content,
		vector,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create document chunk")
	}

	return create, nil
}

func (d *DB) DeleteDocumentChunks(ctx context.Context, documentID int32) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM document_chunk WHERE document_id = $1`, documentID); err != nil {
		return errors.Wrap(err, "failed to delete document chunks")
	}
	return nil
}

// SearchDocumentChunks runs a cosine nearest-neighbour search restricted to
// the given document UIDs. pgvector's <=> operator yields cosine distance;
// the score returned is 1 - distance so higher means closer.
func (d *DB) SearchDocumentChunks(ctx context.Context, opts *store.ChunkSearchOptions) ([]*store.DocumentChunkWithScore, error) {
	uidPlaceholders := make([]string, len(opts.DocumentUIDs))
	args := []any{pgvector.NewVector(opts.Vector)}
	for i, uid := range opts.DocumentUIDs {
		uidPlaceholders[i] = placeholder(len(args) + 1)
		args = append(args, uid)
	}
	args = append(args, opts.Limit)

	query := `
		SELECT
			c.id, c.document_id, c.chunk_index, c.content, c.created_ts,
			doc.uid, doc.title,
			1 - (c.embedding <=> $1) AS score
		FROM document_chunk c
		JOIN document doc ON doc.id = c.document_id
		WHERE doc.uid IN (` + strings.Join(uidPlaceholders, ", ") + `)
			AND c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $1
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search document chunks")
	}
	defer rows.Close()

	list := make([]*store.DocumentChunkWithScore, 0, opts.Limit)
	for rows.Next() {
		hit := &store.DocumentChunkWithScore{Chunk: &store.DocumentChunk{}}
		if err := rows.Scan(
			&hit.Chunk.ID,
			&hit.Chunk.DocumentID,
			&hit.Chunk.ChunkIndex,
			&hit.Chunk.Content,
			&hit.Chunk.CreatedTs,
			&hit.DocumentUID,
			&hit.DocumentTitle,
			&hit.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document chunk")
		}
		list = append(list, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
