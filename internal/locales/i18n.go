package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed *.json
var localeFS embed.FS

// Message IDs used by the bot.
const (
	MsgReplyFallback       = "MsgReplyFallback"
	MsgParticipated        = "MsgParticipated"
	MsgParticipatedPartial = "MsgParticipatedPartial"
	MsgDailyLimitReached   = "MsgDailyLimitReached"
)

var (
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
)

// Init initializes the i18n bundle by loading the embedded language files.
// An unparsable language code falls back to English.
func Init(defaultLangCode string) error {
	var err error
	defaultLanguage, err = language.Parse(defaultLangCode)
	if err != nil {
		log.Printf("WARN: Failed to parse default language code '%s': %v. Falling back to English.", defaultLangCode, err)
		defaultLanguage = language.English
	}

	b := i18n.NewBundle(defaultLanguage)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := localeFS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read embedded locales: %w", err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		if _, err := b.LoadMessageFileFS(localeFS, file.Name()); err != nil {
			log.Printf("WARN: Failed to load message file '%s': %v", file.Name(), err)
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no message files loaded from locales")
	}

	bundle = b
	return nil
}

// NewLocalizer creates a localizer for the given language preferences,
// falling back to the bundle's default language.
func NewLocalizer(langPrefs ...string) *i18n.Localizer {
	if bundle == nil {
		log.Panicln("Attempted to create localizer before i18n bundle initialization.")
	}
	return i18n.NewLocalizer(bundle, append(langPrefs, defaultLanguage.String())...)
}

// GetMessage retrieves and formats a message by its ID.
// The message ID itself is returned when no translation exists.
func GetMessage(localizer *i18n.Localizer, msgID string, templateData map[string]interface{}) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: templateData,
	})
	if err != nil {
		log.Printf("ERROR: Failed to localize message ID '%s': %v", msgID, err)
		return msgID
	}
	return msg
}
