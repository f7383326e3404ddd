package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icoffio/articleflow/internal/core/domain"
)

type fakeSender struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1].Text
}

type fakeEnqueuer struct {
	payloads []domain.SubmissionPayload
	err      error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, payload domain.SubmissionPayload) (*domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, payload)
	return &domain.Job{ID: fmt.Sprintf("job_%d", len(f.payloads))}, nil
}

type fakeSettings struct {
	prefs   domain.Preferences
	updated []domain.Preferences
}

func (f *fakeSettings) Resolve(context.Context, int64) (domain.Preferences, error) {
	return f.prefs, nil
}

func (f *fakeSettings) Update(_ context.Context, prefs domain.Preferences) error {
	f.updated = append(f.updated, prefs)
	f.prefs = prefs
	return nil
}

type fakeAuditor struct {
	rows []*domain.Submission
}

func (f *fakeAuditor) InsertSubmission(_ context.Context, s *domain.Submission) error {
	f.rows = append(f.rows, s)
	return nil
}

func newTestBot() (*Bot, *fakeSender, *fakeEnqueuer, *fakeSettings, *fakeAuditor) {
	sender := &fakeSender{}
	queue := &fakeEnqueuer{}
	settings := &fakeSettings{prefs: domain.Preferences{
		ContentStyle:      domain.StyleJournalistic,
		ImagesCount:       2,
		ImagesSource:      domain.ImagesSourceStock,
		AutoPublish:       true,
		InterfaceLanguage: "en",
	}}
	audit := &fakeAuditor{}

	logger := zerolog.Nop()
	b := &Bot{
		sender:   sender,
		queue:    queue,
		settings: settings,
		audit:    audit,
		logger:   logger,
		seen:     make(map[int]time.Time),
	}

	return b, sender, queue, settings, audit
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: 42},
		From: &tgbotapi.User{ID: 7, UserName: "alice"},
	}
}

func TestHandleSubmissionEnqueuesPerURL(t *testing.T) {
	b, sender, queue, _, audit := newTestBot()

	msg := textMessage("https://example.com/one https://example.com/two")
	b.handleSubmission(context.Background(), msg)

	require.Len(t, queue.payloads, 2)
	assert.Equal(t, "https://example.com/one", queue.payloads[0].URL)
	assert.Equal(t, "https://example.com/two", queue.payloads[1].URL)
	assert.Equal(t, int64(42), queue.payloads[0].ChatID)
	assert.NotEmpty(t, queue.payloads[0].SubmissionID)

	require.Len(t, audit.rows, 2)
	assert.Equal(t, domain.SubmissionTypeURL, audit.rows[0].Type)
	assert.Equal(t, "job_1", audit.rows[0].JobID)
	assert.Equal(t, domain.SubmissionStatusQueued, audit.rows[0].Status)

	assert.Contains(t, sender.lastText(t), "2")
}

func TestHandleSubmissionTooManyURLs(t *testing.T) {
	b, sender, queue, _, _ := newTestBot()

	var urls []string
	for i := 0; i < 6; i++ {
		urls = append(urls, fmt.Sprintf("https://example.com/%d", i))
	}
	b.handleSubmission(context.Background(), textMessage(strings.Join(urls, " ")))

	assert.Empty(t, queue.payloads)
	assert.Equal(t, message("en", msgTooManyURLs), sender.lastText(t))
}

func TestHandleSubmissionTextQueued(t *testing.T) {
	b, sender, queue, _, audit := newTestBot()

	text := strings.Repeat("an update about the new release ", 4)
	b.handleSubmission(context.Background(), textMessage(text))

	require.Len(t, queue.payloads, 1)
	assert.Empty(t, queue.payloads[0].URL)
	assert.Equal(t, strings.TrimSpace(text), queue.payloads[0].RawText)

	require.Len(t, audit.rows, 1)
	assert.Equal(t, domain.SubmissionTypeText, audit.rows[0].Type)
	assert.False(t, audit.rows[0].CreatedAt.IsZero())
	assert.False(t, audit.rows[0].UpdatedAt.IsZero())

	assert.Equal(t, message("en", msgQueuedText), sender.lastText(t))
}

func TestHandleSubmissionShortTextRejected(t *testing.T) {
	b, sender, queue, _, _ := newTestBot()

	b.handleSubmission(context.Background(), textMessage("too short"))

	assert.Empty(t, queue.payloads)
	assert.Equal(t, message("en", msgTextTooShort), sender.lastText(t))
}

func TestHandleSubmissionEnqueueErrorReported(t *testing.T) {
	b, sender, queue, _, _ := newTestBot()
	queue.err = errors.New("db down")

	b.handleSubmission(context.Background(), textMessage(strings.Repeat("words and more words ", 5)))

	assert.Equal(t, message("en", msgInternalError), sender.lastText(t))
}

func TestHandleCallbackSetsLanguage(t *testing.T) {
	b, sender, _, settings, _ := newTestBot()

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    callbackLangPrefix + "pl",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
	}
	b.handleCallback(context.Background(), cb)

	require.Len(t, settings.updated, 1)
	assert.Equal(t, "pl", settings.updated[0].InterfaceLanguage)
	assert.Equal(t, int64(42), settings.updated[0].ChatID)

	assert.Len(t, sender.requests, 1)
	assert.Equal(t, message("pl", msgLanguageSet), sender.lastText(t))
}

func TestAlreadySeenDedupsUpdates(t *testing.T) {
	b, _, _, _, _ := newTestBot()

	assert.False(t, b.alreadySeen(100))
	assert.True(t, b.alreadySeen(100))
	assert.False(t, b.alreadySeen(101))

	b.mu.Lock()
	b.seen[100] = time.Now().Add(-updateDedupTTL - time.Minute)
	b.mu.Unlock()

	assert.False(t, b.alreadySeen(100))
}

func TestApplySetting(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
		check      func(t *testing.T, p domain.Preferences)
	}{
		{key: "style", value: "technical", check: func(t *testing.T, p domain.Preferences) {
			assert.Equal(t, "technical", p.ContentStyle)
		}},
		{key: "images", value: "3", check: func(t *testing.T, p domain.Preferences) {
			assert.Equal(t, 3, p.ImagesCount)
		}},
		{key: "images", value: "many", wantErr: true},
		{key: "source", value: "generative", check: func(t *testing.T, p domain.Preferences) {
			assert.Equal(t, domain.ImagesSourceGenerative, p.ImagesSource)
		}},
		{key: "autopublish", value: "off", check: func(t *testing.T, p domain.Preferences) {
			assert.False(t, p.AutoPublish)
		}},
		{key: "autopublish", value: "maybe", wantErr: true},
		{key: "volume", value: "11", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"_"+tt.value, func(t *testing.T) {
			prefs := domain.Preferences{AutoPublish: true}
			err := applySetting(&prefs, tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, prefs)
		})
	}
}

func TestApplySettingOverride(t *testing.T) {
	prefs := domain.Preferences{}

	require.NoError(t, applySetting(&prefs, "override", "avoid passive voice"))
	assert.Equal(t, "avoid passive voice", prefs.StyleOverride)

	require.NoError(t, applySetting(&prefs, "override", "-"))
	assert.Empty(t, prefs.StyleOverride)
}

func commandMessage(text string) *tgbotapi.Message {
	msg := textMessage(text)

	cmdLen := strings.IndexByte(text, ' ')
	if cmdLen < 0 {
		cmdLen = len(text)
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}

	return msg
}

func TestHandleSettingsMultiWordOverride(t *testing.T) {
	b, sender, _, settings, _ := newTestBot()

	b.handleCommand(context.Background(), commandMessage("/settings override avoid passive voice"))

	require.Len(t, settings.updated, 1)
	assert.Equal(t, "avoid passive voice", settings.updated[0].StyleOverride)
	assert.Contains(t, sender.lastText(t), "override: avoid passive voice")
}

func TestFormatSettings(t *testing.T) {
	out := formatSettings("en", domain.Preferences{
		ContentStyle:      domain.StyleJournalistic,
		ImagesCount:       2,
		ImagesSource:      domain.ImagesSourceStock,
		AutoPublish:       true,
		InterfaceLanguage: "en",
	})

	assert.Contains(t, out, message("en", msgSettingsHeader))
	assert.Contains(t, out, "style: journalistic")
	assert.Contains(t, out, "images: 2 (stock)")
	assert.Contains(t, out, "autopublish: on")
}

func TestFormatSuccess(t *testing.T) {
	result := &domain.JobResult{
		Title:      "Big <News> Today",
		Category:   "Technology",
		WordCount:  480,
		Languages:  []string{"en", "pl"},
		Published:  true,
		DurationMS: 12300,
		URLs: map[string]string{
			"pl": "https://app.icoffio.com/pl/article/big-news-today-pl",
			"en": "https://app.icoffio.com/en/article/big-news-today-en",
		},
	}

	out := formatSuccess("en", result)

	assert.Contains(t, out, message("en", msgPublished))
	assert.Contains(t, out, "Big &lt;News&gt; Today")
	assert.Contains(t, out, "480 words · Technology")
	assert.Contains(t, out, "12.3s")

	enIdx := strings.Index(out, `<a href="https://app.icoffio.com/en/article/big-news-today-en">EN</a>`)
	plIdx := strings.Index(out, `<a href="https://app.icoffio.com/pl/article/big-news-today-pl">PL</a>`)
	require.GreaterOrEqual(t, enIdx, 0)
	require.GreaterOrEqual(t, plIdx, 0)
	assert.Less(t, enIdx, plIdx)
}

func TestFormatSuccessDraftNotice(t *testing.T) {
	out := formatSuccess("en", &domain.JobResult{Title: "t", Published: false})
	assert.Contains(t, out, message("en", msgDraft))
}

func TestFormatFailureKeepsFirstLineOnly(t *testing.T) {
	out := formatFailure("en", "extract: no usable content\ndetails follow")

	assert.Contains(t, out, "extract: no usable content")
	assert.NotContains(t, out, "details follow")
}
