package sqlite

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/store"
)

func (d *DB) CreateDocumentChunk(ctx context.Context, create *store.DocumentChunk) (*store.DocumentChunk, error) {
	stmt := `INSERT INTO document_chunk (document_id, chunk_index, content, embedding, created_ts)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.DocumentID,
		create.ChunkIndex,
		create.Content,
		vectorToBLOB(create.Embedding),
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create document chunk")
	}

	return create, nil
}

func (d *DB) DeleteDocumentChunks(ctx context.Context, documentID int32) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM document_chunk WHERE document_id = ?`, documentID); err != nil {
		return errors.Wrap(err, "failed to delete document chunks")
	}
	return nil
}

// SearchDocumentChunks loads the candidate chunks for the given documents
// and ranks them by cosine similarity in the application layer. The grounded
// selection is capped at a handful of documents, so the candidate set stays
// small enough for a linear scan.
func (d *DB) SearchDocumentChunks(ctx context.Context, opts *store.ChunkSearchOptions) ([]*store.DocumentChunkWithScore, error) {
	uidPlaceholders := make([]string, len(opts.DocumentUIDs))
	args := make([]any, 0, len(opts.DocumentUIDs))
	for i, uid := range opts.DocumentUIDs {
		uidPlaceholders[i] = "?"
		args = append(args, uid)
	}

	query := `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.embedding, c.created_ts, doc.uid, doc.title
		FROM document_chunk c
		JOIN document doc ON doc.id = c.document_id
		WHERE doc.uid IN (` + strings.Join(uidPlaceholders, ", ") + `)
			AND c.embedding IS NOT NULL`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load document chunks")
	}
	defer rows.Close()

	hits := make([]*store.DocumentChunkWithScore, 0)
	for rows.Next() {
		hit := &store.DocumentChunkWithScore{Chunk: &store.DocumentChunk{}}
		var blob []byte
		if err := rows.Scan(
			&hit.Chunk.ID,
			&hit.Chunk.DocumentID,
			&hit.Chunk.ChunkIndex,
			&hit.Chunk.Content,
			&blob,
			&hit.Chunk.CreatedTs,
			&hit.DocumentUID,
			&hit.DocumentTitle,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document chunk")
		}
		vec, err := blobToVector(blob)
		if err != nil {
			return nil, err
		}
		hit.Chunk.Embedding = vec
		hit.Score = cosineSimilarity(opts.Vector, vec)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	return hits, nil
}
