package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
)

// Notifier reports pipeline outcomes back to the originating chat. All sends
// are best effort: a delivery failure never fails the job.
type Notifier struct {
	sender   sender
	settings SettingsService
	logger   zerolog.Logger
}

func NewNotifier(api *tgbotapi.BotAPI, settings SettingsService, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender:   api,
		settings: settings,
		logger:   logger.With().Str(logComponent, "notifier").Logger(),
	}
}

func (n *Notifier) NotifySuccess(ctx context.Context, payload domain.SubmissionPayload, result *domain.JobResult) error {
	lang := n.interfaceLanguage(ctx, payload)
	return n.send(payload.ChatID, formatSuccess(lang, result))
}

func (n *Notifier) NotifyFailure(ctx context.Context, payload domain.SubmissionPayload, message string) error {
	lang := n.interfaceLanguage(ctx, payload)
	return n.send(payload.ChatID, formatFailure(lang, message))
}

func (n *Notifier) interfaceLanguage(ctx context.Context, payload domain.SubmissionPayload) string {
	prefs, err := n.settings.Resolve(ctx, payload.ChatID)
	if err == nil && prefs.InterfaceLanguage != "" {
		return prefs.InterfaceLanguage
	}

	switch payload.LanguageCode {
	case "ru", "en", "pl":
		return payload.LanguageCode
	}

	return defaultLanguage
}

func (n *Notifier) send(chatID int64, html string) error {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := n.sender.Send(msg); err != nil {
		n.logger.Warn().Err(err).Int64(logChatID, chatID).Msg("notification send failed")
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

func formatSuccess(lang string, result *domain.JobResult) string {
	var sb strings.Builder

	header := msgDraft
	if result.Published {
		header = msgPublished
	}
	fmt.Fprintf(&sb, "✅ <b>%s</b>\n\n", message(lang, header))
	fmt.Fprintf(&sb, "📰 %s\n", tgbotapi.EscapeText(tgbotapi.ModeHTML, result.Title))
	fmt.Fprintf(&sb, "📊 %d words · %s\n", result.WordCount, result.Category)
	fmt.Fprintf(&sb, "🌐 %s\n", strings.Join(result.Languages, ", "))
	fmt.Fprintf(&sb, "⏱ %.1fs", float64(result.DurationMS)/1000)

	if len(result.URLs) > 0 {
		langs := make([]string, 0, len(result.URLs))
		for code := range result.URLs {
			langs = append(langs, code)
		}
		sort.Strings(langs)

		links := make([]string, 0, len(langs))
		for _, code := range langs {
			links = append(links, fmt.Sprintf(`<a href="%s">%s</a>`, result.URLs[code], strings.ToUpper(code)))
		}
		sb.WriteString("\n\n" + strings.Join(links, " · "))
	}

	return sb.String()
}

// formatFailure keeps the error detail terse. Stack traces and provider
// errors stay in the logs, not in the chat.
func formatFailure(lang, detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = "internal error"
	}
	if idx := strings.IndexByte(detail, '\n'); idx >= 0 {
		detail = detail[:idx]
	}

	return "❌ " + fmt.Sprintf(
		message(lang, msgFailed),
		tgbotapi.EscapeText(tgbotapi.ModeHTML, detail),
	)
}
