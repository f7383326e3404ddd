// Package settings resolves per-chat preferences. The database row is the
// source of truth; a short-TTL in-process cache only absorbs repeated reads
// within one burst of updates.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
	db "github.com/icoffio/articleflow/internal/storage"
)

// The global fallback row. Chats without their own row inherit it before
// the compiled-in defaults apply.
const globalChatID int64 = 0

// Store is the persistence surface for preferences.
type Store interface {
	GetPreferences(ctx context.Context, chatID int64) (*domain.Preferences, error)
	UpsertPreferences(ctx context.Context, prefs *domain.Preferences) error
}

type cacheEntry struct {
	prefs   domain.Preferences
	expires time.Time
}

type Service struct {
	store  Store
	logger zerolog.Logger
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[int64]cacheEntry
}

func New(store Store, logger zerolog.Logger, ttl time.Duration) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "settings").Logger(),
		ttl:    ttl,
		cache:  make(map[int64]cacheEntry),
	}
}

// Defaults returns the compiled-in preference set for a chat.
func Defaults(chatID int64) domain.Preferences {
	return domain.Preferences{
		ChatID:            chatID,
		ContentStyle:      domain.StyleJournalistic,
		ImagesCount:       2,
		ImagesSource:      domain.ImagesSourceStock,
		AutoPublish:       true,
		InterfaceLanguage: "ru",
	}
}

// Resolve returns the effective preferences for a chat: its own row, else
// the global row, else defaults. Never fails on a missing row.
func (s *Service) Resolve(ctx context.Context, chatID int64) (domain.Preferences, error) {
	if prefs, ok := s.cached(chatID); ok {
		return prefs, nil
	}

	prefs, err := s.store.GetPreferences(ctx, chatID)

	switch {
	case err == nil:
		s.remember(*prefs)

		return *prefs, nil
	case !errors.Is(err, db.ErrPreferencesNotFound):
		return domain.Preferences{}, fmt.Errorf("resolve preferences for %d: %w", chatID, err)
	}

	if chatID != globalChatID {
		global, err := s.store.GetPreferences(ctx, globalChatID)
		if err == nil {
			resolved := *global
			resolved.ChatID = chatID
			s.remember(resolved)

			return resolved, nil
		}

		if !errors.Is(err, db.ErrPreferencesNotFound) {
			return domain.Preferences{}, fmt.Errorf("resolve global preferences: %w", err)
		}
	}

	resolved := Defaults(chatID)
	s.remember(resolved)

	return resolved, nil
}

// Update validates and persists new preferences, then refreshes the cache.
func (s *Service) Update(ctx context.Context, prefs domain.Preferences) error {
	if err := Validate(prefs); err != nil {
		return err
	}

	prefs.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertPreferences(ctx, &prefs); err != nil {
		return fmt.Errorf("save preferences for %d: %w", prefs.ChatID, err)
	}

	s.remember(prefs)
	s.logger.Info().Int64("chat_id", prefs.ChatID).Msg("preferences updated")

	return nil
}

// Validate rejects preference values outside the accepted sets.
func Validate(prefs domain.Preferences) error {
	if !domain.IsValidStyle(prefs.ContentStyle) {
		return fmt.Errorf("unknown content style %q", prefs.ContentStyle)
	}

	if prefs.ImagesCount < 0 || prefs.ImagesCount > domain.MaxImagesCount {
		return fmt.Errorf("images count %d out of range 0..%d", prefs.ImagesCount, domain.MaxImagesCount)
	}

	switch prefs.ImagesSource {
	case domain.ImagesSourceStock, domain.ImagesSourceGenerative, domain.ImagesSourceNone, "":
	default:
		return fmt.Errorf("unknown images source %q", prefs.ImagesSource)
	}

	switch prefs.InterfaceLanguage {
	case "ru", "en", "pl":
	default:
		return fmt.Errorf("unsupported interface language %q", prefs.InterfaceLanguage)
	}

	return nil
}

func (s *Service) cached(chatID int64) (domain.Preferences, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[chatID]
	if !ok || time.Now().After(entry.expires) {
		return domain.Preferences{}, false
	}

	return entry.prefs, true
}

func (s *Service) remember(prefs domain.Preferences) {
	if s.ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[prefs.ChatID] = cacheEntry{prefs: prefs, expires: time.Now().Add(s.ttl)}
}
