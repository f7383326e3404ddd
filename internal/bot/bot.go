// Package bot is the Telegram intake gateway. It validates submissions,
// records an audit row and hands the work to the durable queue; the
// pipeline never talks to Telegram except through the Notifier.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
	"github.com/icoffio/articleflow/internal/extract"
	"github.com/icoffio/articleflow/internal/platform/config"
	"github.com/icoffio/articleflow/internal/platform/observability"
)

const (
	commandStart    = "start"
	commandHelp     = "help"
	commandSettings = "settings"
	commandLanguage = "language"

	callbackLangPrefix   = "lang:"
	callbackSettingsMenu = "settings:menu"

	maxURLsPerSubmission = 5
	minTextRunes         = 50

	updateDedupTTL = 10 * time.Minute

	logComponent = "component"
	logChatID    = "chat_id"
	logJobID     = "job_id"
)

// Enqueuer puts a submission on the durable queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload domain.SubmissionPayload) (*domain.Job, error)
}

// SettingsService resolves and updates per-chat preferences.
type SettingsService interface {
	Resolve(ctx context.Context, chatID int64) (domain.Preferences, error)
	Update(ctx context.Context, prefs domain.Preferences) error
}

// Auditor records the intake audit row.
type Auditor interface {
	InsertSubmission(ctx context.Context, s *domain.Submission) error
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	cfg      *config.Config
	api      *tgbotapi.BotAPI
	sender   sender
	queue    Enqueuer
	settings SettingsService
	audit    Auditor
	logger   zerolog.Logger

	mu   sync.Mutex
	seen map[int]time.Time
}

func New(
	cfg *config.Config,
	queue Enqueuer,
	settings SettingsService,
	audit Auditor,
	logger *zerolog.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		cfg:      cfg,
		api:      api,
		sender:   api,
		queue:    queue,
		settings: settings,
		audit:    audit,
		logger:   logger.With().Str(logComponent, "bot").Logger(),
		seen:     make(map[int]time.Time),
	}, nil
}

// Run consumes the long-poll update stream until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.api.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if b.alreadySeen(update.UpdateID) {
		return
	}

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	b.handleSubmission(ctx, msg)
}

// alreadySeen dedups redelivered updates within a TTL window. Telegram
// redelivers the whole batch when an earlier update crashed the handler.
func (b *Bot) alreadySeen(updateID int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for id, at := range b.seen {
		if now.Sub(at) > updateDedupTTL {
			delete(b.seen, id)
		}
	}

	if _, ok := b.seen[updateID]; ok {
		return true
	}
	b.seen[updateID] = now

	return false
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	lang := b.interfaceLanguage(ctx, msg.Chat.ID, languageHint(msg))

	switch msg.Command() {
	case commandStart, commandHelp:
		b.reply(msg.Chat.ID, message(lang, msgHelp))
	case commandSettings:
		b.handleSettings(ctx, msg, lang)
	case commandLanguage:
		b.sendLanguageKeyboard(msg.Chat.ID, lang)
	default:
		b.reply(msg.Chat.ID, message(lang, msgUnknownCommand))
	}
}

func (b *Bot) handleSettings(ctx context.Context, msg *tgbotapi.Message, lang string) {
	prefs, err := b.settings.Resolve(ctx, msg.Chat.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64(logChatID, msg.Chat.ID).Msg("resolve settings")
		b.reply(msg.Chat.ID, message(lang, msgInternalError))
		return
	}

	raw := strings.TrimSpace(msg.CommandArguments())
	if raw == "" {
		b.reply(msg.Chat.ID, formatSettings(lang, prefs))
		return
	}

	// The value may contain spaces (style override text), so only the key
	// is split off.
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		b.reply(msg.Chat.ID, message(lang, msgSettingsUsage))
		return
	}

	if err := applySetting(&prefs, parts[0], strings.TrimSpace(parts[1])); err != nil {
		b.reply(msg.Chat.ID, message(lang, msgSettingsUsage))
		return
	}
	prefs.ChatID = msg.Chat.ID

	if err := b.settings.Update(ctx, prefs); err != nil {
		b.logger.Error().Err(err).Int64(logChatID, msg.Chat.ID).Msg("update settings")
		b.reply(msg.Chat.ID, message(lang, msgInvalidSetting))
		return
	}

	b.reply(msg.Chat.ID, formatSettings(prefs.InterfaceLanguage, prefs))
}

// applySetting mutates one preference field from a /settings key value pair.
// Range validation stays in the settings service.
func applySetting(prefs *domain.Preferences, key, value string) error {
	switch key {
	case "style":
		prefs.ContentStyle = value
	case "override":
		// "-" clears the extra style instructions.
		if value == "-" {
			prefs.StyleOverride = ""
		} else {
			prefs.StyleOverride = value
		}
	case "images":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("images count: %w", err)
		}
		prefs.ImagesCount = n
	case "source":
		prefs.ImagesSource = value
	case "autopublish":
		switch value {
		case "on":
			prefs.AutoPublish = true
		case "off":
			prefs.AutoPublish = false
		default:
			return fmt.Errorf("autopublish: want on or off, got %q", value)
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	return nil
}

func (b *Bot) sendLanguageKeyboard(chatID int64, lang string) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Русский", callbackLangPrefix+"ru"),
			tgbotapi.NewInlineKeyboardButtonData("English", callbackLangPrefix+"en"),
			tgbotapi.NewInlineKeyboardButtonData("Polski", callbackLangPrefix+"pl"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, message(lang, msgChooseLanguage))
	msg.ReplyMarkup = keyboard
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64(logChatID, chatID).Msg("send language keyboard")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("answer callback")
	}

	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	if cb.Data == callbackSettingsMenu {
		prefs, err := b.settings.Resolve(ctx, chatID)
		if err != nil {
			b.logger.Error().Err(err).Int64(logChatID, chatID).Msg("resolve settings")
			return
		}
		b.reply(chatID, formatSettings(prefs.InterfaceLanguage, prefs))
		return
	}

	if !strings.HasPrefix(cb.Data, callbackLangPrefix) {
		return
	}
	lang := strings.TrimPrefix(cb.Data, callbackLangPrefix)

	prefs, err := b.settings.Resolve(ctx, chatID)
	if err != nil {
		b.logger.Error().Err(err).Int64(logChatID, chatID).Msg("resolve settings")
		return
	}

	prefs.ChatID = chatID
	prefs.InterfaceLanguage = lang
	if err := b.settings.Update(ctx, prefs); err != nil {
		b.logger.Error().Err(err).Int64(logChatID, chatID).Msg("set language")
		b.reply(chatID, message(b.interfaceLanguage(ctx, chatID, ""), msgInvalidSetting))
		return
	}

	b.reply(chatID, message(lang, msgLanguageSet))
}

func (b *Bot) handleSubmission(ctx context.Context, msg *tgbotapi.Message) {
	lang := b.interfaceLanguage(ctx, msg.Chat.ID, languageHint(msg))

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if extract.IsURLSubmission(text) {
		urls := extract.URLs(text, maxURLsPerSubmission+1)
		if len(urls) > maxURLsPerSubmission {
			b.reply(msg.Chat.ID, message(lang, msgTooManyURLs))
			return
		}

		queued := 0
		for _, u := range urls {
			if b.enqueueOne(ctx, msg, text, u) {
				queued++
			}
		}
		if queued == 0 {
			b.reply(msg.Chat.ID, message(lang, msgInternalError))
			return
		}
		b.reply(msg.Chat.ID, fmt.Sprintf(message(lang, msgQueuedURLs), queued))
		return
	}

	if len([]rune(text)) < minTextRunes {
		b.reply(msg.Chat.ID, message(lang, msgTextTooShort))
		return
	}

	if !b.enqueueOne(ctx, msg, text, "") {
		b.reply(msg.Chat.ID, message(lang, msgInternalError))
		return
	}
	b.reply(msg.Chat.ID, message(lang, msgQueuedText))
}

// enqueueOne records the audit row and enqueues one job. The audit write is
// best effort; a failed insert does not block the submission.
func (b *Bot) enqueueOne(ctx context.Context, msg *tgbotapi.Message, text, url string) bool {
	submissionType := domain.SubmissionTypeText
	content := text
	if url != "" {
		submissionType = domain.SubmissionTypeURL
		content = url
	}

	var userID int64
	var username, langCode string
	if msg.From != nil {
		userID = msg.From.ID
		username = msg.From.UserName
		langCode = msg.From.LanguageCode
	}

	now := time.Now().UTC()
	submission := &domain.Submission{
		ID:        uuid.New().String(),
		ChatID:    msg.Chat.ID,
		UserID:    userID,
		Username:  username,
		Type:      submissionType,
		Content:   content,
		Status:    domain.SubmissionStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	payload := domain.SubmissionPayload{
		ChatID:       msg.Chat.ID,
		UserID:       userID,
		Username:     username,
		LanguageCode: langCode,
		RawText:      text,
		URL:          url,
		SubmissionID: submission.ID,
	}

	job, err := b.queue.Enqueue(ctx, payload)
	if err != nil {
		b.logger.Error().Err(err).Int64(logChatID, msg.Chat.ID).Msg("enqueue submission")
		return false
	}

	submission.JobID = job.ID
	if err := b.audit.InsertSubmission(ctx, submission); err != nil {
		b.logger.Warn().Err(err).Str(logJobID, job.ID).Msg("audit insert failed")
	}

	observability.SubmissionsReceived.WithLabelValues(submissionType).Inc()
	b.logger.Info().
		Str(logJobID, job.ID).
		Int64(logChatID, msg.Chat.ID).
		Str("type", submissionType).
		Msg("submission queued")

	return true
}

// interfaceLanguage prefers the stored preference, then the Telegram client
// hint, then the default.
func (b *Bot) interfaceLanguage(ctx context.Context, chatID int64, hint string) string {
	prefs, err := b.settings.Resolve(ctx, chatID)
	if err == nil && prefs.InterfaceLanguage != "" {
		return prefs.InterfaceLanguage
	}

	switch hint {
	case "ru", "en", "pl":
		return hint
	}

	return defaultLanguage
}

func languageHint(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}

	return msg.From.LanguageCode
}

func (b *Bot) reply(chatID int64, html string) {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64(logChatID, chatID).Msg("send reply")
	}
}
