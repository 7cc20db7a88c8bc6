package utils

import (
	"os"
	"path"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

var (
	bundleLock sync.RWMutex
	bundle     *i18n.Bundle
)

// SupportedLanguages are the message catalogues looked up in the i18n dir
var SupportedLanguages = []string{"en", "ar"}

func newBundle() *i18n.Bundle {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	return b
}

// InitI18NBundle loads the yaml catalogues of dir. English is required,
// other languages are loaded when present.
func InitI18NBundle(dir string) error {
	b := newBundle()

	for _, lang := range SupportedLanguages {
		file := path.Join(dir, lang+".yaml")
		if _, err := os.Stat(file); err != nil && lang != "en" {
			log.WithField("prefix", "i18n").Warnf("skip missing message file: %s", file)
			continue
		}
		if _, err := b.LoadMessageFile(file); err != nil {
			return err
		}
	}

	bundleLock.Lock()
	bundle = b
	bundleLock.Unlock()
	return nil
}

// NewLocalizer returns a localizer of lang falling back to English. Before
// the bundle is loaded only default messages are available.
func NewLocalizer(lang string) *i18n.Localizer {
	bundleLock.RLock()
	b := bundle
	bundleLock.RUnlock()

	if b == nil {
		b = newBundle()
	}
	return i18n.NewLocalizer(b, lang, "en")
}

// Localize renders a message and returns its default text on lookup errors
func Localize(lang string, message *i18n.Message, data map[string]interface{}) string {
	text, err := NewLocalizer(lang).Localize(&i18n.LocalizeConfig{
		DefaultMessage: message,
		TemplateData:   data,
	})
	if err != nil && text == "" {
		return message.Other
	}
	return text
}
