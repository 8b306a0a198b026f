package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/ragdesk/store"
)

func (d *DB) CreateNotification(ctx context.Context, create *store.Notification) (*store.Notification, error) {
	stmt := `INSERT INTO notification (uid, user_id, kind, title, body, created_ts)
		VALUES (` + placeholders(6) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.UserID, create.Kind, create.Title, create.Body, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return create, nil
}

func (d *DB) ListNotifications(ctx context.Context, find *store.FindNotification) ([]*store.Notification, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.UnreadOnly {
		where = append(where, "read_ts IS NULL")
	}

	query := `
		SELECT id, uid, user_id, kind, title, body, read_ts, created_ts
		FROM notification
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Notification, 0)
	for rows.Next() {
		n := &store.Notification{}
		if err := rows.Scan(&n.ID, &n.UID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.ReadTs, &n.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateNotification(ctx context.Context, update *store.UpdateNotification) (*store.Notification, error) {
	set, args := []string{}, []any{}

	if update.ReadTs != nil {
		set, args = append(set, "read_ts = "+placeholder(len(args)+1)), append(args, *update.ReadTs)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE notification SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, user_id, kind, title, body, read_ts, created_ts`
	result := &store.Notification{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&result.ID, &result.UID, &result.UserID, &result.Kind, &result.Title, &result.Body, &result.ReadTs, &result.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}

	return result, nil
}

func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID int32, readTs int64) error {
	if _, err := d.db.ExecContext(ctx, `UPDATE notification SET read_ts = $1 WHERE user_id = $2 AND read_ts IS NULL`, readTs, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
