// Package i18n selects the console's message language and holds its
// English and Simplified Chinese catalogs.
package i18n

import (
	"context"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var matcher = language.NewMatcher(SupportedLangs)

type contextKey struct{}

// printerKey is the key used to store the printer in the context
var printerKey = contextKey{}

// MatchLanguage returns the best matching supported language for an
// Accept-Language style string.
func MatchLanguage(acceptLang string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(acceptLang)
	_, idx, _ := matcher.Match(tags...)
	return SupportedLangs[idx]
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// PrinterFor returns a printer for a language name such as "en", "zh" or
// "zh-CN".
func PrinterFor(lang string) *message.Printer {
	return NewPrinter(MatchLanguage(lang))
}

// WithPrinter returns a new context with the printer injected
func WithPrinter(ctx context.Context, p *message.Printer) context.Context {
	return context.WithValue(ctx, printerKey, p)
}

// GetPrinter returns the printer from the context, or a default one
func GetPrinter(ctx context.Context) *message.Printer {
	p, ok := ctx.Value(printerKey).(*message.Printer)
	if !ok {
		return message.NewPrinter(DefaultLang)
	}
	return p
}

// EnvLanguage returns the catalog for the process locale (LC_ALL, then
// LANG).
func EnvLanguage() language.Tag {
	lang := os.Getenv("LC_ALL")
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	if lang == "" {
		return DefaultLang
	}

	// Strip encoding (e.g. .UTF-8) if present
	if i := strings.Index(lang, "."); i != -1 {
		lang = lang[:i]
	}
	return MatchLanguage(strings.ReplaceAll(lang, "_", "-"))
}

// NewCLIPrinter returns a printer for the system's locale (from env vars)
func NewCLIPrinter() *message.Printer {
	return NewPrinter(EnvLanguage())
}
