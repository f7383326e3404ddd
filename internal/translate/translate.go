// Package translate fans an article out into the configured target languages.
// Per-language failures degrade to the source text instead of failing the
// whole article.
package translate

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/llm"
)

type Translator struct {
	client llm.Client
	logger zerolog.Logger

	pivot   string
	targets []string
}

func New(client llm.Client, logger zerolog.Logger, pivot string, targets []string) *Translator {
	return &Translator{
		client:  client,
		logger:  logger.With().Str("component", "translate").Logger(),
		pivot:   pivot,
		targets: targets,
	}
}

// Languages lists every language the translator produces, pivot first.
func (t *Translator) Languages() []string {
	return append([]string{t.pivot}, t.targets...)
}

// TranslateAll returns the article in the pivot language plus every target.
// A target that fails keeps the pivot text so publishing never blocks on a
// single bad translation.
func (t *Translator) TranslateAll(ctx context.Context, source llm.Translation) map[string]llm.Translation {
	source = Clean(source)

	localized := make(map[string]llm.Translation, len(t.targets)+1)
	localized[t.pivot] = source

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, lang := range t.targets {
		if lang == t.pivot {
			continue
		}

		wg.Add(1)

		go func(lang string) {
			defer wg.Done()

			translated, err := t.client.Translate(ctx, source, lang)
			if err != nil {
				t.logger.Warn().Str("language", lang).Err(err).Msg("translation failed, keeping source text")

				mu.Lock()
				localized[lang] = source
				mu.Unlock()

				return
			}

			mu.Lock()
			localized[lang] = Clean(*translated)
			mu.Unlock()
		}(lang)
	}

	wg.Wait()

	return localized
}
