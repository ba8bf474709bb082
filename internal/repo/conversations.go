package repo

import (
	"context"
	"database/sql"

	"taskmind/internal/domain"
)

func (r Repo) InsertConversation(ctx context.Context, c domain.Conversation) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO conversations(id,tenant_id,user_id,title,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.TenantID, c.UserID, nullable(c.Title), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetConversation(ctx context.Context, tenantID, id string) (domain.Conversation, error) {
	var c domain.Conversation
	var title sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,tenant_id,user_id,title,created_at,updated_at FROM conversations WHERE tenant_id=? AND id=?`, tenantID, id).
		Scan(&c.ID, &c.TenantID, &c.UserID, &title, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if title.Valid {
		c.Title = title.String
	}
	return c, err
}

func (r Repo) ListConversations(ctx context.Context, tenantID, userID string) ([]domain.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,tenant_id,user_id,title,created_at,updated_at FROM conversations WHERE tenant_id=? AND user_id=? ORDER BY updated_at DESC, id DESC`, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var title sql.NullString
		if err := rows.Scan(&c.ID, &c.TenantID, &c.UserID, &title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if title.Valid {
			c.Title = title.String
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) TouchConversation(ctx context.Context, tenantID, id, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE conversations SET updated_at=? WHERE tenant_id=? AND id=?`, updatedAt, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteConversation(ctx context.Context, tenantID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM conversations WHERE tenant_id=? AND id=?`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = r.DB.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id=?`, id)
	return err
}

func (r Repo) InsertMessage(ctx context.Context, m domain.Message) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO messages(id,conversation_id,role,content,file_urls_json,action_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.ConversationID, m.Role, m.Content, marshalStrings(m.FileURLs), nullableStringPtr(m.ActionJSON), m.CreatedAt)
	return err
}

// ListMessages returns a conversation's messages in insertion order. rowid
// is used rather than the ULID id: two messages written in the same
// millisecond are not guaranteed lexical order.
func (r Repo) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,conversation_id,role,content,file_urls_json,action_json,created_at FROM messages WHERE conversation_id=? ORDER BY rowid ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Message
	for rows.Next() {
		var m domain.Message
		var fileURLs, action sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &fileURLs, &action, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.FileURLs = unmarshalStrings(fileURLs)
		if action.Valid {
			m.ActionJSON = &action.String
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
