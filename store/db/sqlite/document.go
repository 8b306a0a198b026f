package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/ragdesk/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	stmt := `INSERT INTO document (uid, creator_id, title, content_type, file_size_bytes, word_count, summary, has_embedding, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.CreatorID, create.Title, create.ContentType, create.FileSizeBytes, create.WordCount, create.Summary, create.HasEmbedding, create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = ?"), append(args, *find.CreatorID)
	}
	if find.HasEmbedding != nil {
		where, args = append(where, "has_embedding = ?"), append(args, *find.HasEmbedding)
	}

	query := `
		SELECT id, uid, creator_id, title, content_type, file_size_bytes, word_count, summary, has_embedding, created_ts, updated_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Document, 0)
	for rows.Next() {
		doc := &store.Document{}
		if err := rows.Scan(&doc.ID, &doc.UID, &doc.CreatorID, &doc.Title, &doc.ContentType, &doc.FileSizeBytes, &doc.WordCount, &doc.Summary, &doc.HasEmbedding, &doc.CreatedTs, &doc.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		list = append(list, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateDocument(ctx context.Context, update *store.UpdateDocument) (*store.Document, error) {
	set, args := []string{}, []any{}

	if update.Summary != nil {
		set, args = append(set, "summary = ?"), append(args, *update.Summary)
	}
	if update.HasEmbedding != nil {
		set, args = append(set, "has_embedding = ?"), append(args, *update.HasEmbedding)
	}
	if update.WordCount != nil {
		set, args = append(set, "word_count = ?"), append(args, *update.WordCount)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE document SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, uid, creator_id, title, content_type, file_size_bytes, word_count, summary, has_embedding, created_ts, updated_ts`
	result := &store.Document{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&result.ID, &result.UID, &result.CreatorID, &result.Title, &result.ContentType, &result.FileSizeBytes, &result.WordCount, &result.Summary, &result.HasEmbedding, &result.CreatedTs, &result.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	return result, nil
}

func (d *DB) DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM document WHERE id = ?`, delete.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM document_chunk WHERE document_id = ?`, delete.ID); err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	return nil
}
