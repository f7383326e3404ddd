package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLanguages(t *testing.T) {
	cfg := &Config{PivotLanguage: "en", TargetLanguages: []string{"pl"}}
	require.NoError(t, cfg.validate())

	cfg.TargetLanguages = []string{"pl", "de"}
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `target language "de"`)

	cfg.PivotLanguage = "ru"
	cfg.TargetLanguages = []string{"pl"}
	err = cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pivot language "ru"`)
}

func TestLoadRejectsUnsupportedTarget(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/articleflow")
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("LLM_API_KEY", "key")
	t.Setenv("TARGET_LANGUAGES", "pl,de")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target language")
}
