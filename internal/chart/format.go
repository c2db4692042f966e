package chart

import (
	"math"
	"strings"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Labeler formats tick labels for one locale.
type Labeler struct {
	printer *message.Printer
	locale  monday.Locale
}

// NewLabeler returns a Labeler for a BCP 47 tag such as "en-US" or
// "de". Unknown tags fall back to US English.
func NewLabeler(locale string) *Labeler {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Labeler{printer: message.NewPrinter(tag), locale: mondayLocale(locale)}
}

// Number formats v with at most decimals fraction digits.
func (l *Labeler) Number(v float64, decimals int) string {
	return l.printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(decimals)))
}

// Step formats v with enough fraction digits to tell apart values
// spaced step apart.
func (l *Labeler) Step(v, step float64) string {
	return l.Number(v, decimalsFor(step))
}

// Date formats t with a Go layout, translating month and day names.
func (l *Labeler) Date(t time.Time, layout string) string {
	return monday.Format(t, layout, l.locale)
}

var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"ru":    monday.LocaleRuRU,
	"pl":    monday.LocalePlPL,
	"sv":    monday.LocaleSvSE,
	"da":    monday.LocaleDaDK,
	"fi":    monday.LocaleFiFI,
	"nb":    monday.LocaleNbNO,
	"ja":    monday.LocaleJaJP,
	"zh":    monday.LocaleZhCN,
	"zh_tw": monday.LocaleZhTW,
	"ko":    monday.LocaleKoKR,
	"tr":    monday.LocaleTrTR,
	"uk":    monday.LocaleUkUA,
}

func mondayLocale(locale string) monday.Locale {
	locale = strings.ToLower(strings.ReplaceAll(locale, "-", "_"))
	if loc, ok := mondayLocales[locale]; ok {
		return loc
	}
	if lang, _, found := strings.Cut(locale, "_"); found {
		if loc, ok := mondayLocales[lang]; ok {
			return loc
		}
	}
	return monday.LocaleEnUS
}

// decimalsFor returns how many fraction digits distinguish ticks spaced
// step apart.
func decimalsFor(step float64) int {
	if step <= 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return 0
	}
	d := int(math.Ceil(-math.Log10(step)))
	if d < 0 {
		return 0
	}
	if d > 6 {
		return 6
	}
	return d
}
