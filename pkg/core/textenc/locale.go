package textenc

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ResolveSeparator picks the field separator. A literal must be exactly one
// usable byte. With useLocale the separator is derived from the process
// locale instead. Anything unusable falls back to DefaultSeparator.
func ResolveSeparator(literal string, useLocale bool) byte {
	if useLocale {
		return separatorFor(processLocale())
	}
	if literal == "" {
		return DefaultSeparator
	}
	if len(literal) != 1 || !usableSeparator(literal[0]) {
		log.Warn().Str("delimiter", literal).Msg("delimiter must be a single punctuation character, using ','")
		return DefaultSeparator
	}
	return literal[0]
}

// processLocale reads the locale from the usual POSIX variables.
func processLocale() string {
	for _, key := range []string{"LC_ALL", "LC_NUMERIC", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// separatorFor maps a POSIX locale name such as "de_DE.UTF-8" to a list
// separator: locales writing decimals with a comma use ';'.
func separatorFor(locale string) byte {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultSeparator
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		log.Debug().Err(err).Str("locale", locale).Msg("unparsable locale, using ','")
		return DefaultSeparator
	}
	return separatorForTag(tag)
}

func separatorForTag(tag language.Tag) byte {
	sample := message.NewPrinter(tag).Sprintf("%.1f", 1.5)
	if strings.Contains(sample, ",") {
		return ';'
	}
	return DefaultSeparator
}

func usableSeparator(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '"', c == '\\', c == '\n', c == '\r', c == 0:
		return false
	case c >= 0x80:
		return false
	default:
		return true
	}
}
