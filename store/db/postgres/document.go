package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/ragdesk/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	fields := []string{"uid", "creator_id", "title", "content_type", "file_size_bytes", "word_count", "summary", "has_embedding", "created_ts", "updated_ts"}
	args := []any{create.UID, create.CreatorID, create.Title, create.ContentType, create.FileSizeBytes, create.WordCount, create.Summary, create.HasEmbedding, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO document (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *find.CreatorID)
	}
	if find.HasEmbedding != nil {
		where, args = append(where, "has_embedding = "+placeholder(len(args)+1)), append(args, *find.HasEmbedding)
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
		set, args = append(set, "summary = "+placeholder(len(args)+1)), append(args, *update.Summary)
	}
	if update.HasEmbedding != nil {
		set, args = append(set, "has_embedding = "+placeholder(len(args)+1)), append(args, *update.HasEmbedding)
	}
	if update.WordCount != nil {
		set, args = append(set, "word_count = "+placeholder(len(args)+1)), append(args, *update.WordCount)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE document SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, creator_id, title, content_type, file_size_bytes, word_count, summary, has_embedding, created_ts, updated_ts`
	result := &store.Document{}
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&result.ID, &result.UID, &result.CreatorID, &result.Title, &result.ContentType, &result.FileSizeBytes, &result.WordCount, &result.Summary, &result.HasEmbedding, &result.CreatedTs, &result.UpdatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	return result, nil
}

func (d *DB) DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM document WHERE id = $1`, delete.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
