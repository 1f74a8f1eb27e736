package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var (
	ErrNoLocales            = errors.New("no locales defined")
	ErrInvalidLocale        = errors.New("invalid locale")
	ErrDuplicateLocale      = errors.New("duplicate locale")
	ErrMissingDefaultLocale = errors.New("default locale is required")
	ErrUnknownDefaultLocale = errors.New("default locale is not a supported locale")
	ErrInvalidFlag          = errors.New("invalid experimental flag")
)

// FlagKind is the value kind a known experimental flag must carry.
type FlagKind int

const (
	FlagKindBool FlagKind = iota + 1
	FlagKindStructured
)

func (k FlagKind) String() string {
	switch k {
	case FlagKindBool:
		return "boolean"
	case FlagKindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

//nolint:gochecknoglobals // fixed registry of flags with a required kind
var knownFlags = map[string]FlagKind{
	FlagAppDir: FlagKindBool,
	FlagTurbo:  FlagKindStructured,
}

// KnownFlagKind returns the required kind of a known experimental flag.
func KnownFlagKind(name string) (FlagKind, bool) {
	k, ok := knownFlags[name]
	return k, ok
}

// Validate checks doc against the descriptor invariants and returns the first violation.
func Validate(doc Document) error {
	if len(doc.I18n.Locales) == 0 {
		return fmt.Errorf("%w: i18n.locales must not be empty", ErrNoLocales)
	}

	seen := make(map[string]int, len(doc.I18n.Locales))
	for i, l := range doc.I18n.Locales {
		tag, err := parseLocale(l)
		if err != nil {
			return fmt.Errorf("%w: i18n.locales[%d] %q: %w", ErrInvalidLocale, i, l, err)
		}
		canonical := tag.String()
		if j, dup := seen[canonical]; dup {
			return fmt.Errorf("%w: i18n.locales[%d] %q repeats i18n.locales[%d]", ErrDuplicateLocale, i, l, j)
		}
		seen[canonical] = i
	}

	if strings.TrimSpace(doc.I18n.DefaultLocale) == "" {
		return fmt.Errorf("%w: i18n.defaultLocale", ErrMissingDefaultLocale)
	}
	tag, err := parseLocale(doc.I18n.DefaultLocale)
	if err != nil {
		return fmt.Errorf("%w: i18n.defaultLocale %q: %w", ErrInvalidLocale, doc.I18n.DefaultLocale, err)
	}
	if _, ok := seen[tag.String()]; !ok {
		return fmt.Errorf("%w: i18n.defaultLocale %q not in %v",
			ErrUnknownDefaultLocale, doc.I18n.DefaultLocale, doc.I18n.Locales)
	}

	return validateFlags(doc.Experimental)
}

func validateFlags(flags map[string]any) error {
	for name, value := range flags {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: experimental flag name is blank", ErrInvalidFlag)
		}
		kind, known := knownFlags[name]
		if !known {
			continue
		}
		if !hasKind(value, kind) {
			return fmt.Errorf("%w: experimental.%s must be %s, got %T", ErrInvalidFlag, name, kind, value)
		}
	}
	return nil
}

func hasKind(v any, kind FlagKind) bool {
	switch kind {
	case FlagKindBool:
		_, ok := v.(bool)
		return ok
	case FlagKindStructured:
		_, ok := v.(map[string]any)
		return ok
	default:
		return false
	}
}

// CanonicalLocale returns the canonical BCP-47 form of l, the form locales are compared in.
func CanonicalLocale(l string) (string, error) {
	tag, err := parseLocale(l)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

func parseLocale(l string) (language.Tag, error) {
	if strings.TrimSpace(l) == "" {
		return language.Und, errors.New("locale is blank")
	}
	if l != strings.TrimSpace(l) {
		return language.Und, errors.New("locale has surrounding whitespace")
	}
	tag, err := language.Parse(l)
	if err != nil {
		return language.Und, err
	}
	return tag, nil
}
