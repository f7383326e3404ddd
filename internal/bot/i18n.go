package bot

import (
	"fmt"
	"strings"

	"github.com/icoffio/articleflow/internal/core/domain"
)

const defaultLanguage = "ru"

type msgKey int

const (
	msgHelp msgKey = iota
	msgUnknownCommand
	msgSettingsUsage
	msgInvalidSetting
	msgInternalError
	msgChooseLanguage
	msgLanguageSet
	msgTooManyURLs
	msgQueuedURLs
	msgQueuedText
	msgTextTooShort
	msgSettingsHeader
	msgPublished
	msgDraft
	msgFailed
)

var messages = map[msgKey]map[string]string{
	msgHelp: {
		"ru": "Пришлите ссылку на статью или текст, и я подготовлю публикацию.\n\n" +
			"Команды:\n/settings — настройки обработки\n/language — язык интерфейса",
		"en": "Send me an article link or raw text and I will prepare a publication.\n\n" +
			"Commands:\n/settings — processing preferences\n/language — interface language",
		"pl": "Wyślij link do artykułu lub tekst, a przygotuję publikację.\n\n" +
			"Komendy:\n/settings — ustawienia\n/language — język interfejsu",
	},
	msgUnknownCommand: {
		"ru": "Неизвестная команда. /help — список команд.",
		"en": "Unknown command. Try /help.",
		"pl": "Nieznana komenda. Spróbuj /help.",
	},
	msgSettingsUsage: {
		"ru": "Использование: /settings <ключ> <значение>\n" +
			"Ключи: style, override, images, source, autopublish",
		"en": "Usage: /settings <key> <value>\n" +
			"Keys: style, override, images, source, autopublish",
		"pl": "Użycie: /settings <klucz> <wartość>\n" +
			"Klucze: style, override, images, source, autopublish",
	},
	msgInvalidSetting: {
		"ru": "Недопустимое значение настройки.",
		"en": "That setting value is not allowed.",
		"pl": "Niedozwolona wartość ustawienia.",
	},
	msgInternalError: {
		"ru": "Что-то пошло не так. Попробуйте позже.",
		"en": "Something went wrong. Please try again later.",
		"pl": "Coś poszło nie tak. Spróbuj później.",
	},
	msgChooseLanguage: {
		"ru": "Выберите язык интерфейса:",
		"en": "Choose your interface language:",
		"pl": "Wybierz język interfejsu:",
	},
	msgLanguageSet: {
		"ru": "Язык интерфейса обновлён.",
		"en": "Interface language updated.",
		"pl": "Język interfejsu zaktualizowany.",
	},
	msgTooManyURLs: {
		"ru": "Слишком много ссылок: максимум 5 за раз.",
		"en": "Too many links: at most 5 per message.",
		"pl": "Za dużo linków: maksymalnie 5 na raz.",
	},
	msgQueuedURLs: {
		"ru": "Принято ссылок: %d. Пришлю результат, когда всё будет готово.",
		"en": "Queued %d link(s). I will report back when everything is ready.",
		"pl": "Przyjęto linków: %d. Dam znać, gdy wszystko będzie gotowe.",
	},
	msgQueuedText: {
		"ru": "Текст принят в обработку. Пришлю результат, когда статья будет готова.",
		"en": "Text accepted. I will report back when the article is ready.",
		"pl": "Tekst przyjęty. Dam znać, gdy artykuł będzie gotowy.",
	},
	msgTextTooShort: {
		"ru": "Текст слишком короткий для статьи. Пришлите хотя бы пару предложений.",
		"en": "The text is too short for an article. Send at least a couple of sentences.",
		"pl": "Tekst jest za krótki na artykuł. Wyślij przynajmniej kilka zdań.",
	},
	msgSettingsHeader: {
		"ru": "Текущие настройки:",
		"en": "Current settings:",
		"pl": "Obecne ustawienia:",
	},
	msgPublished: {
		"ru": "Статья опубликована",
		"en": "Article published",
		"pl": "Artykuł opublikowany",
	},
	msgDraft: {
		"ru": "Черновик готов (автопубликация выключена)",
		"en": "Draft ready (auto-publish is off)",
		"pl": "Szkic gotowy (autopublikacja wyłączona)",
	},
	msgFailed: {
		"ru": "Не удалось обработать материал: %s\nПопробуйте прислать его ещё раз.",
		"en": "Could not process the submission: %s\nPlease try sending it again.",
		"pl": "Nie udało się przetworzyć materiału: %s\nSpróbuj wysłać go ponownie.",
	},
}

func message(lang string, key msgKey) string {
	byLang, ok := messages[key]
	if !ok {
		return ""
	}
	if text, ok := byLang[lang]; ok {
		return text
	}

	return byLang[defaultLanguage]
}

func formatSettings(lang string, prefs domain.Preferences) string {
	autopublish := "off"
	if prefs.AutoPublish {
		autopublish = "on"
	}

	var sb strings.Builder
	sb.WriteString("<b>" + message(lang, msgSettingsHeader) + "</b>\n")
	fmt.Fprintf(&sb, "style: %s\n", prefs.ContentStyle)
	if prefs.StyleOverride != "" {
		fmt.Fprintf(&sb, "override: %s\n", prefs.StyleOverride)
	}
	fmt.Fprintf(&sb, "images: %d (%s)\n", prefs.ImagesCount, prefs.ImagesSource)
	fmt.Fprintf(&sb, "autopublish: %s\n", autopublish)
	fmt.Fprintf(&sb, "language: %s", prefs.InterfaceLanguage)

	return sb.String()
}
