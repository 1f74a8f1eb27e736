package descriptor

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Message ids used when a Report is explained through a Translator.
const (
	MsgReportLocales          = "ReportLocales"
	MsgReportDefaultLocale    = "ReportDefaultLocale"
	MsgReportFlagEnabled      = "ReportFlagEnabled"
	MsgReportFlagDisabled     = "ReportFlagDisabled"
	MsgReportFlagValue        = "ReportFlagValue"
	MsgReportImmutable        = "ReportImmutable"
	MsgReportMutable          = "ReportMutable"
	MsgReportDeterministic    = "ReportDeterministic"
	MsgReportNondeterministic = "ReportNondeterministic"
	MsgReportConforms         = "ReportConforms"
	MsgReportNotConforms      = "ReportNotConforms"
)

// Translator renders a message id with template variables for the requested language.
type Translator interface {
	TranslateWithMapAndCount(
		ctx context.Context,
		request any,
		messageID string,
		variables map[string]any,
		count int,
	) string
}

// Report is the outcome of a conformance check on a descriptor.
type Report struct {
	Locales       []string
	DefaultLocale string
	AppDir        bool
	Flags         map[string]any

	// Immutable is false when mutating values returned by accessors changed the descriptor.
	Immutable bool
	// Deterministic is false when a fresh construction of the literal differs from Load,
	// or rebuilding the inspected descriptor from its document yields a different value.
	Deterministic bool
}

// reconstruct builds a new descriptor from a document when checking determinism.
//
//nolint:gochecknoglobals // replaced in tests
var reconstruct = New

// Check inspects d and returns its conformance report.
func Check(d *Descriptor) Report {
	r := Report{
		Locales:       d.Locales(),
		DefaultLocale: d.DefaultLocale(),
		AppDir:        d.AppDir(),
		Flags:         d.Flags(),
	}
	r.Immutable = checkImmutable(d)
	r.Deterministic = checkDeterministic(d)
	return r
}

func checkDeterministic(d *Descriptor) bool {
	literal, err := reconstruct(Default())
	if err != nil || !Load().Equal(literal) {
		return false
	}

	rebuilt, err := reconstruct(d.Document())
	return err == nil && d.Equal(rebuilt)
}

func checkImmutable(d *Descriptor) bool {
	before := MustNew(d.Document())

	locales := d.Locales()
	for i := range locales {
		locales[i] = "x-mutated"
	}
	flags := d.Flags()
	flags[FlagAppDir] = !d.AppDir()
	flags["x-mutated"] = true
	doc := d.Document()
	doc.I18n.DefaultLocale = "x-mutated"
	doc.I18n.Locales = append(doc.I18n.Locales, "x-mutated")
	tags := d.Tags()
	clear(tags)

	return d.Equal(before)
}

// LocaleCount is the number of supported locales.
func (r Report) LocaleCount() int {
	return len(r.Locales)
}

// Conforms reports whether every structural property held.
func (r Report) Conforms() bool {
	return r.LocaleCount() > 0 &&
		r.hasDefaultLocale() &&
		r.Immutable &&
		r.Deterministic
}

// hasDefaultLocale compares in canonical form, as Validate does.
func (r Report) hasDefaultLocale() bool {
	def, err := CanonicalLocale(r.DefaultLocale)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(r.Locales, func(l string) bool {
		c, cErr := CanonicalLocale(l)
		return cErr == nil && c == def
	})
}

// String renders the report in English without a Translator.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Locales: %d (%s)\n", r.LocaleCount(), strings.Join(r.Locales, ", "))
	fmt.Fprintf(&b, "Default locale: %s\n", r.DefaultLocale)
	for _, name := range r.flagNames() {
		fmt.Fprintf(&b, "Experimental %s: %v\n", name, r.Flags[name])
	}
	fmt.Fprintf(&b, "Immutable: %t\n", r.Immutable)
	fmt.Fprintf(&b, "Deterministic: %t\n", r.Deterministic)
	fmt.Fprintf(&b, "Conforms: %t\n", r.Conforms())
	return b.String()
}

// Explain renders the report line by line through tr in the requested language.
func (r Report) Explain(ctx context.Context, tr Translator, lang string) string {
	if tr == nil {
		return r.String()
	}

	t := func(id string, vars map[string]any, count int) string {
		return tr.TranslateWithMapAndCount(ctx, lang, id, vars, count)
	}

	lines := []string{
		t(MsgReportLocales, map[string]any{
			"Count":   r.LocaleCount(),
			"Locales": strings.Join(r.Locales, ", "),
		}, r.LocaleCount()),
		t(MsgReportDefaultLocale, map[string]any{"Locale": r.DefaultLocale}, 1),
	}

	for _, name := range r.flagNames() {
		vars := map[string]any{"Name": name, "Value": fmt.Sprint(r.Flags[name])}
		switch v := r.Flags[name].(type) {
		case bool:
			if v {
				lines = append(lines, t(MsgReportFlagEnabled, vars, 1))
			} else {
				lines = append(lines, t(MsgReportFlagDisabled, vars, 1))
			}
		default:
			lines = append(lines, t(MsgReportFlagValue, vars, 1))
		}
	}

	if r.Immutable {
		lines = append(lines, t(MsgReportImmutable, nil, 1))
	} else {
		lines = append(lines, t(MsgReportMutable, nil, 1))
	}
	if r.Deterministic {
		lines = append(lines, t(MsgReportDeterministic, nil, 1))
	} else {
		lines = append(lines, t(MsgReportNondeterministic, nil, 1))
	}
	if r.Conforms() {
		lines = append(lines, t(MsgReportConforms, nil, 1))
	} else {
		lines = append(lines, t(MsgReportNotConforms, nil, 1))
	}

	return strings.Join(lines, "\n") + "\n"
}

func (r Report) flagNames() []string {
	names := make([]string, 0, len(r.Flags))
	for name := range r.Flags {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
