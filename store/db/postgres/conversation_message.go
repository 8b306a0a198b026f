package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/ragdesk/store"
)

func (d *DB) CreateConversationMessage(ctx context.Context, create *store.ConversationMessage) (*store.ConversationMessage, error) {
	sources, err := json.Marshal(sourcesOrEmpty(create.Sources))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sources: %w", err)
	}
	metadata, err := json.Marshal(metadataOrEmpty(create.Metadata))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	stmt := `INSERT INTO conversation_message (conversation_id, role, content, sources, metadata, created_ts)
		VALUES (` + placeholders(6) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.ConversationID, create.Role, create.Content, string(sources), string(metadata), create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create conversation message: %w", err)
	}

	return create, nil
}

func (d *DB) ListConversationMessages(ctx context.Context, find *store.FindConversationMessage) ([]*store.ConversationMessage, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}

	query := `
		SELECT id, conversation_id, role, content, sources, metadata, created_ts
		FROM conversation_message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ConversationMessage, 0)
	for rows.Next() {
		m := &store.ConversationMessage{}
		var sources, metadata string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &sources, &metadata, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan conversation message: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &m.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation messages: %w", err)
	}

	return list, nil
}

func sourcesOrEmpty(sources []store.MessageSource) []store.MessageSource {
	if sources == nil {
		return []store.MessageSource{}
	}
	return sources
}

func metadataOrEmpty(metadata map[string]string) map[string]string {
	if metadata == nil {
		return map[string]string{}
	}
	return metadata
}
