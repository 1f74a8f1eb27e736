// Package descriptor defines the site configuration descriptor: the locales a web
// application supports, its default locale and the experimental framework flags it opts into.
package descriptor

import (
	"reflect"
	"slices"
	"sync"

	"golang.org/x/text/language"
)

const (
	// FlagAppDir opts the consuming runtime into its alternate routing and rendering convention.
	FlagAppDir = "appDir"
	// FlagTurbo carries the bundler options table of the consuming runtime.
	FlagTurbo = "turbo"
)

// I18n is the locale block of a Document.
type I18n struct {
	Locales       []string `json:"locales"       yaml:"locales"       toml:"locales"`
	DefaultLocale string   `json:"defaultLocale" yaml:"defaultLocale" toml:"defaultLocale"`
}

// Document is the wire shape of a descriptor as authored in JSON, YAML or TOML.
// It is mutable; a Descriptor is built from it with New.
type Document struct {
	I18n         I18n           `json:"i18n"                   yaml:"i18n"                   toml:"i18n"`
	Experimental map[string]any `json:"experimental,omitempty" yaml:"experimental,omitempty" toml:"experimental,omitempty"`
}

// Default returns a fresh copy of the statically defined document.
func Default() Document {
	return Document{
		I18n: I18n{
			Locales:       []string{"en", "mn"},
			DefaultLocale: "en",
		},
		Experimental: map[string]any{
			FlagAppDir: true,
		},
	}
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	return Document{
		I18n: I18n{
			Locales:       slices.Clone(d.I18n.Locales),
			DefaultLocale: d.I18n.DefaultLocale,
		},
		Experimental: cloneFlags(d.Experimental),
	}
}

// Descriptor is an immutable, validated configuration descriptor.
// Accessors hand out copies, so a constructed Descriptor never changes.
type Descriptor struct {
	locales       []string
	tags          []language.Tag
	defaultLocale string
	defaultTag    language.Tag
	flags         map[string]any
}

//nolint:gochecknoglobals // the literal descriptor is built once per process
var loadOnce = sync.OnceValue(func() *Descriptor {
	return MustNew(Default())
})

// Load returns the statically defined descriptor. Every call returns an equal value.
func Load() *Descriptor {
	return loadOnce()
}

// New validates doc and freezes a deep copy of it.
func New(doc Document) (*Descriptor, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	doc = doc.Clone()
	d := &Descriptor{
		locales:       doc.I18n.Locales,
		tags:          make([]language.Tag, 0, len(doc.I18n.Locales)),
		defaultLocale: doc.I18n.DefaultLocale,
		flags:         doc.Experimental,
	}
	if d.flags == nil {
		d.flags = map[string]any{}
	}

	for _, l := range d.locales {
		tag, _ := parseLocale(l)
		d.tags = append(d.tags, tag)
	}
	d.defaultTag, _ = parseLocale(d.defaultLocale)

	return d, nil
}

// MustNew is New that panics on an invalid document.
func MustNew(doc Document) *Descriptor {
	d, err := New(doc)
	if err != nil {
		panic(err)
	}
	return d
}

// Locales returns the supported locales in their authored order.
func (d *Descriptor) Locales() []string {
	return slices.Clone(d.locales)
}

// Tags returns the supported locales parsed as language tags.
func (d *Descriptor) Tags() []language.Tag {
	return slices.Clone(d.tags)
}

// DefaultLocale returns the default locale as authored.
func (d *Descriptor) DefaultLocale() string {
	return d.defaultLocale
}

// DefaultTag returns the default locale parsed as a language tag.
func (d *Descriptor) DefaultTag() language.Tag {
	return d.defaultTag
}

// HasLocale reports whether locale is one of the supported locales, compared in canonical form.
func (d *Descriptor) HasLocale(locale string) bool {
	tag, err := parseLocale(locale)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(d.tags, func(t language.Tag) bool {
		return t.String() == tag.String()
	})
}

// Flags returns a deep copy of the experimental flags.
func (d *Descriptor) Flags() map[string]any {
	return cloneFlags(d.flags)
}

// Flag returns a copy of the named experimental flag value.
func (d *Descriptor) Flag(name string) (any, bool) {
	v, ok := d.flags[name]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Enabled reports whether the named flag is set to boolean true.
func (d *Descriptor) Enabled(name string) bool {
	v, ok := d.flags[name].(bool)
	return ok && v
}

// AppDir reports whether the appDir flag is enabled.
func (d *Descriptor) AppDir() bool {
	return d.Enabled(FlagAppDir)
}

// Document returns a mutable copy of the descriptor in its wire shape.
func (d *Descriptor) Document() Document {
	doc := Document{
		I18n: I18n{
			Locales:       slices.Clone(d.locales),
			DefaultLocale: d.defaultLocale,
		},
	}
	if len(d.flags) > 0 {
		doc.Experimental = cloneFlags(d.flags)
	}
	return doc
}

// Equal reports whether both descriptors hold the same locales, default and flags.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	return slices.Equal(d.locales, other.locales) &&
		d.defaultLocale == other.defaultLocale &&
		reflect.DeepEqual(d.flags, other.flags)
}

func cloneFlags(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneFlags(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i := range t {
			out[i] = cloneFlags(t[i])
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
