package localization

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pitabwire/util"
	"golang.org/x/text/language"
)

//go:embed messages/*.toml
var messageFiles embed.FS

var ErrNoMessages = errors.New("no messages for language")

type contextKey string

func (c contextKey) String() string {
	return "sitecfg/localization/" + string(c)
}

const ctxKeyLanguage = contextKey("languageKey")

// ToContext adds language to the current supplied context.
func ToContext(ctx context.Context, lang []string) context.Context {
	return context.WithValue(ctx, ctxKeyLanguage, lang)
}

// FromContext extracts language from the supplied context if any exist.
func FromContext(ctx context.Context) []string {
	languages, ok := ctx.Value(ctxKeyLanguage).([]string)
	if !ok {
		return nil
	}

	return languages
}

// Available lists the languages with embedded message files.
func Available() []string {
	entries, err := fs.Glob(messageFiles, "messages/messages.*.toml")
	if err != nil {
		return nil
	}

	var langs []string
	for _, e := range entries {
		name := strings.TrimSuffix(strings.TrimPrefix(e, "messages/messages."), ".toml")
		langs = append(langs, name)
	}
	slices.Sort(langs)
	return langs
}

type Manager interface {
	Bundle() *i18n.Bundle
	Languages() []string
	Translate(ctx context.Context, request any, messageID string) string
	TranslateWithMap(
		ctx context.Context,
		request any,
		messageID string,
		variables map[string]any,
	) string
	TranslateWithMapAndCount(
		ctx context.Context,
		request any,
		messageID string,
		variables map[string]any,
		count int,
	) string
}

type managerImpl struct {
	bundle    *i18n.Bundle
	languages []string
}

// NewManager loads the embedded message files for languages into a bundle whose fallback is defaultLanguage.
func NewManager(defaultLanguage string, languages ...string) (Manager, error) {
	defaultTag, err := language.Parse(defaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("default language %q: %w", defaultLanguage, err)
	}

	bundle := i18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	if !slices.Contains(languages, defaultLanguage) {
		languages = append([]string{defaultLanguage}, languages...)
	}

	for _, lang := range languages {
		path := fmt.Sprintf("messages/messages.%s.toml", lang)
		if _, loadErr := bundle.LoadMessageFileFS(messageFiles, path); loadErr != nil {
			if errors.Is(loadErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %q", ErrNoMessages, lang)
			}
			return nil, fmt.Errorf("loading messages for %q: %w", lang, loadErr)
		}
	}

	return &managerImpl{bundle: bundle, languages: slices.Clone(languages)}, nil
}

// Bundle Access the translation bundle instatiated in the system.
func (s *managerImpl) Bundle() *i18n.Bundle {
	return s.bundle
}

// Languages lists the loaded languages, default first.
func (s *managerImpl) Languages() []string {
	return slices.Clone(s.languages)
}

// Translate performs a quick translation based on the supplied message id.
func (s *managerImpl) Translate(ctx context.Context, request any, messageID string) string {
	return s.TranslateWithMap(ctx, request, messageID, map[string]any{})
}

// TranslateWithMap performs a translation with variables based on the supplied message id.
func (s *managerImpl) TranslateWithMap(
	ctx context.Context,
	request any,
	messageID string,
	variables map[string]any,
) string {
	return s.TranslateWithMapAndCount(ctx, request, messageID, variables, 1)
}

// TranslateWithMapAndCount performs a translation with variables based on the supplied message id and can pluralize.
func (s *managerImpl) TranslateWithMapAndCount(
	ctx context.Context,
	request any,
	messageID string,
	variables map[string]any,
	count int,
) string {
	var languageSlice []string

	switch v := request.(type) {
	case context.Context:
		languageSlice = FromContext(v)

	case string:
		languageSlice = []string{v}

	case []string:
		languageSlice = v

	default:
		logger := util.Log(ctx).WithField("messageID", messageID).WithField("variables", variables)
		logger.Warn("TranslateWithMapAndCount -- no valid request object found, use string, []string or context")
		return messageID
	}

	localizer := i18n.NewLocalizer(s.Bundle(), languageSlice...)

	transVersion, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: variables,
		PluralCount:  count,
	})

	if err != nil {
		logger := util.Log(ctx).WithError(err).WithField("messageID", messageID)
		logger.Error(" TranslateWithMapAndCount -- could not perform translation")
		if transVersion == "" {
			return messageID
		}
	}

	return transVersion
}
