package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/ragdesk/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	documentIDs, err := json.Marshal(create.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document ids: %w", err)
	}

	stmt := `INSERT INTO conversation (uid, creator_id, title, title_source, mode, session_token, document_ids, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.CreatorID, create.Title, create.TitleSource, create.Mode, create.SessionToken, string(documentIDs), create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "c.id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "c.uid = ?"), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "c.creator_id = ?"), append(args, *find.CreatorID)
	}
	if find.SessionToken != nil {
		where, args = append(where, "c.session_token = ?"), append(args, *find.SessionToken)
	}

	query := `
		SELECT
			c.id, c.uid, c.creator_id, c.title, c.title_source, c.mode, c.session_token, c.document_ids, c.created_ts, c.updated_ts,
			COALESCE(COUNT(m.id), 0) AS message_count
		FROM conversation c
		LEFT JOIN conversation_message m ON m.conversation_id = c.id
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY c.id
		ORDER BY c.updated_ts DESC`
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		c := &store.Conversation{}
		var documentIDs string
		if err := rows.Scan(&c.ID, &c.UID, &c.CreatorID, &c.Title, &c.TitleSource, &c.Mode, &c.SessionToken, &documentIDs, &c.CreatedTs, &c.UpdatedTs, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(documentIDs), &c.DocumentIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document ids: %w", err)
		}
		list = append(list, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.Title != nil {
		set, args = append(set, "title = ?"), append(args, *update.Title)
	}
	if update.TitleSource != nil {
		set, args = append(set, "title_source = ?"), append(args, *update.TitleSource)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversation SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, uid, creator_id, title, title_source, mode, session_token, document_ids, created_ts, updated_ts`
	result := &store.Conversation{}
	var documentIDs string
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&result.ID, &result.UID, &result.CreatorID, &result.Title, &result.TitleSource, &result.Mode, &result.SessionToken, &documentIDs, &result.CreatedTs, &result.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	if err := json.Unmarshal([]byte(documentIDs), &result.DocumentIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document ids: %w", err)
	}

	return result, nil
}

func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM conversation WHERE id = ?`, delete.ID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM conversation_message WHERE conversation_id = ?`, delete.ID); err != nil {
		return fmt.Errorf("failed to delete conversation messages: %w", err)
	}
	return nil
}
