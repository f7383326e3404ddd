package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/icoffio/articleflow/internal/core/domain"
)

// ErrPreferencesNotFound is returned when no row exists for a chat.
var ErrPreferencesNotFound = errors.New("preferences not found")

// GetPreferences returns the stored preferences for a chat.
func (db *DB) GetPreferences(ctx context.Context, chatID int64) (*domain.Preferences, error) {
	var p domain.Preferences

	err := db.Pool.QueryRow(ctx, `
		SELECT chat_id, content_style, style_override, images_count, images_source, auto_publish, interface_language, updated_at
		FROM preferences
		WHERE chat_id = $1
	`, chatID).Scan(&p.ChatID, &p.ContentStyle, &p.StyleOverride, &p.ImagesCount, &p.ImagesSource,
		&p.AutoPublish, &p.InterfaceLanguage, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreferencesNotFound
		}

		return nil, fmt.Errorf("get preferences: %w", err)
	}

	return &p, nil
}

// UpsertPreferences writes the full preferences row for a chat.
func (db *DB) UpsertPreferences(ctx context.Context, p *domain.Preferences) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO preferences (chat_id, content_style, style_override, images_count, images_source, auto_publish, interface_language, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (chat_id) DO UPDATE SET
			content_style = EXCLUDED.content_style,
			style_override = EXCLUDED.style_override,
			images_count = EXCLUDED.images_count,
			images_source = EXCLUDED.images_source,
			auto_publish = EXCLUDED.auto_publish,
			interface_language = EXCLUDED.interface_language,
			updated_at = now()
	`, p.ChatID, p.ContentStyle, p.StyleOverride, p.ImagesCount, p.ImagesSource, p.AutoPublish, p.InterfaceLanguage); err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}

	return nil
}
