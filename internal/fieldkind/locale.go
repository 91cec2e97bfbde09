package fieldkind

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgYes   = "Yes"
	msgNo    = "No"
	msgEmpty = "(empty)"
)

var supportedLocales = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.French,
	language.German,
	language.Spanish,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// layouts holds the date patterns of a locale. symbolAfter places the
// currency symbol after the amount, separated by a no-break space.
type layouts struct {
	date        string
	dateTime    string
	symbolAfter bool
}

var layoutsByLocale = map[language.Tag]layouts{
	language.AmericanEnglish: {date: "01/02/2006", dateTime: "01/02/2006 15:04:05"},
	language.BritishEnglish:  {date: "02/01/2006", dateTime: "02/01/2006 15:04:05"},
	language.French:          {date: "02/01/2006", dateTime: "02/01/2006 15:04:05", symbolAfter: true},
	language.German:          {date: "02.01.2006", dateTime: "02.01.2006 15:04:05", symbolAfter: true},
	language.Spanish:         {date: "02/01/2006", dateTime: "02/01/2006 15:04:05", symbolAfter: true},
}

var messages = mustBuildCatalog(map[language.Tag][3]string{
	language.AmericanEnglish: {msgYes, msgNo, msgEmpty},
	language.French:          {"Oui", "Non", "(vide)"},
	language.German:          {"Ja", "Nein", "(leer)"},
	language.Spanish:         {"Sí", "No", "(vacío)"},
})

func mustBuildCatalog(translations map[language.Tag][3]string) *catalog.Builder {
	builder := catalog.NewBuilder(catalog.Fallback(language.AmericanEnglish))
	for tag, words := range translations {
		for i, key := range []string{msgYes, msgNo, msgEmpty} {
			if err := builder.SetString(tag, key, words[i]); err != nil {
				panic(fmt.Sprintf("fieldkind: invalid %s translation of %q: %v", tag, key, err))
			}
		}
	}
	return builder
}

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}

// Locale is the rendering context of one acting user.
type Locale struct {
	tag      language.Tag
	location *time.Location
	layouts  layouts
	printer  *message.Printer
}

// NewLocale resolves a BCP 47 tag or Accept-Language value and an IANA zone
// name. Unknown locales fall back to American English and unknown zones to UTC.
func NewLocale(locale, timezone string) Locale {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		tags = []language.Tag{language.AmericanEnglish}
	}
	_, index, _ := localeMatcher.Match(tags...)
	tag := supportedLocales[index]

	location := time.UTC
	if name := strings.TrimSpace(timezone); name != "" {
		if loaded, err := time.LoadLocation(name); err == nil {
			location = loaded
		}
	}

	return Locale{
		tag:      tag,
		location: location,
		layouts:  layoutsByLocale[tag],
		printer:  newPrinter(tag),
	}
}

// DefaultLocale is American English in UTC.
func DefaultLocale() Locale {
	return NewLocale("", "")
}

// Tag returns the matched language tag.
func (l Locale) Tag() language.Tag {
	return l.tag
}

// Location returns the zone datetimes are rendered in.
func (l Locale) Location() *time.Location {
	if l.location == nil {
		return time.UTC
	}
	return l.location
}

func (l Locale) Yes() string   { return l.text(msgYes) }
func (l Locale) No() string    { return l.text(msgNo) }
func (l Locale) Empty() string { return l.text(msgEmpty) }

func (l Locale) text(key string) string {
	if l.printer == nil {
		return key
	}
	return l.printer.Sprintf(key)
}

// Money renders an amount with two decimals and the locale's symbol for the
// given ISO currency. A missing code means the locale's own currency; a code
// that is not ISO 4217 is shown as written.
func (l Locale) Money(amount float64, code string) string {
	number := l.sprintf("%.2f", math.Abs(amount))
	symbol := l.currencySymbol(code)
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	switch {
	case symbol == "":
		return sign + number
	case l.formats().symbolAfter:
		return sign + number + "\u00a0" + symbol
	case endsInLetter(symbol):
		symbol += "\u00a0"
	}
	return sign + symbol + number
}

func (l Locale) currencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	var unit currency.Unit
	if code == "" {
		var confidence language.Confidence
		if unit, confidence = currency.FromTag(l.Tag()); confidence == language.No {
			return ""
		}
	} else {
		parsed, err := currency.ParseISO(code)
		if err != nil {
			return code
		}
		unit = parsed
	}
	return l.printerOrDefault().Sprint(currency.Symbol(unit))
}

// endsInLetter reports whether a symbol such as "SEK" needs a space before
// the amount.
func endsInLetter(symbol string) bool {
	last, _ := utf8.DecodeLastRuneInString(symbol)
	return unicode.IsLetter(last)
}

func (l Locale) printerOrDefault() *message.Printer {
	if l.printer == nil {
		return newPrinter(language.AmericanEnglish)
	}
	return l.printer
}

func (l Locale) sprintf(format string, args ...any) string {
	return l.printerOrDefault().Sprintf(format, args...)
}

func (l Locale) formats() layouts {
	if l.layouts.date == "" {
		return layoutsByLocale[language.AmericanEnglish]
	}
	return l.layouts
}
