package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// SaveConversation stores or updates a conversation.
func (s *Store) SaveConversation(ctx context.Context, c *domain.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, scope_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			scope_id = EXCLUDED.scope_id,
			updated_at = EXCLUDED.updated_at
	`, c.ID, c.Title, c.ScopeID, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, scope_id, created_at, updated_at FROM conversations WHERE id = $1
	`, id).Scan(&c.ID, &c.Title, &c.ScopeID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns conversations, most recently updated first.
func (s *Store) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, scope_id, created_at, updated_at FROM conversations
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.ScopeID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, nil
}

// AppendMessage stores a message at the end of its conversation.
func (s *Store) AppendMessage(ctx context.Context, m *domain.Message) error {
	if _, err := s.GetConversation(ctx, m.ConversationID); err != nil {
		return fmt.Errorf("append to conversation %s: %w", m.ConversationID, err)
	}

	sourcesJSON, err := marshalJSON(m.Sources, "[]")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, sources, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
	`, m.ID, m.ConversationID, string(m.Role), m.Content, sourcesJSON, m.Confidence, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, sources, confidence, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var (
			m           domain.Message
			role        string
			sourcesJSON []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &sourcesJSON,
			&m.Confidence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal(sourcesJSON, &m.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources: %w", err)
		}
		m.Role = domain.Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
