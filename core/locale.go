package core

import (
	"os"
	"strings"

	"github.com/Cristobalca/shield-browser-app/log"
)

// LocaleProfile is a coherent language tuple for one identity: ordered
// locale tags (most specific first) and the matching Accept-Language header.
type LocaleProfile struct {
	Locales        []string `json:"locales"`
	AcceptLanguage string   `json:"accept_language"`
}

type LocaleQuery struct {
	Timezone           string
	PreferSystemLocale bool
	ForcedLocale       string
}

var timezoneLocales = map[string]*LocaleProfile{
	"America/Santo_Domingo": {Locales: []string{"es-DO", "es"}, AcceptLanguage: "es-DO,es;q=0.9,en-US;q=0.7"},
	"America/Mexico_City":   {Locales: []string{"es-MX", "es"}, AcceptLanguage: "es-MX,es;q=0.9,en-US;q=0.7"},
	"America/Bogota":        {Locales: []string{"es-CO", "es"}, AcceptLanguage: "es-CO,es;q=0.9,en-US;q=0.7"},
	"America/Lima":          {Locales: []string{"es-PE", "es"}, AcceptLanguage: "es-PE,es;q=0.9,en-US;q=0.7"},
	"America/Caracas":       {Locales: []string{"es-VE", "es"}, AcceptLanguage: "es-VE,es;q=0.9,en-US;q=0.7"},
	"America/Santiago":      {Locales: []string{"es-CL", "es"}, AcceptLanguage: "es-CL,es;q=0.9,en-US;q=0.7"},
}

var regionLocales = map[string]*LocaleProfile{
	"America": {Locales: []string{"en-US", "en"}, AcceptLanguage: "en-US,en;q=0.9"},
	"Europe":  {Locales: []string{"en-GB", "en"}, AcceptLanguage: "en-GB,en;q=0.9"},
	"Asia":    {Locales: []string{"en-GB", "en"}, AcceptLanguage: "en-GB,en;q=0.9"},
	"Africa":  {Locales: []string{"en-GB", "en"}, AcceptLanguage: "en-GB,en;q=0.9"},
}

const defaultLocaleRegion = "America"

type localeStrategy struct {
	name string
	fn   func(LocaleQuery) *LocaleProfile
}

// Strategies are tried in order; the first one that produces a profile
// wins. The final default strategy always succeeds, so resolution can
// never fail.
var localeStrategies = []localeStrategy{
	{"forced", localeFromForced},
	{"system", localeFromSystem},
	{"timezone", localeFromTimezone},
	{"region", localeFromRegion},
	{"default", localeFromDefault},
}

func ResolveLocale(q LocaleQuery) *LocaleProfile {
	for _, s := range localeStrategies {
		if p := s.fn(q); p != nil {
			log.Debug("locale: resolved %s via '%s' strategy (timezone: %s)", p.Locales[0], s.name, q.Timezone)
			return p
		}
	}
	return regionLocales[defaultLocaleRegion]
}

func localeFromForced(q LocaleQuery) *LocaleProfile {
	if q.ForcedLocale == "" {
		return nil
	}
	base := strings.Split(q.ForcedLocale, "-")[0]
	return &LocaleProfile{
		Locales:        []string{q.ForcedLocale, base},
		AcceptLanguage: q.ForcedLocale + "," + base + ";q=0.9",
	}
}

func localeFromSystem(q LocaleQuery) *LocaleProfile {
	if !q.PreferSystemLocale {
		return nil
	}
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		raw := os.Getenv(env)
		if raw == "" || raw == "C" || raw == "POSIX" {
			continue
		}
		// "es_DO.UTF-8" -> "es-DO"
		raw = strings.SplitN(raw, ".", 2)[0]
		raw = strings.ReplaceAll(raw, "_", "-")
		parts := strings.Split(raw, "-")
		lang := strings.ToLower(parts[0])
		region := strings.ToUpper(lang)
		if len(parts) > 1 && parts[1] != "" {
			region = strings.ToUpper(parts[1])
		}
		tag := lang + "-" + region
		return &LocaleProfile{
			Locales:        []string{tag, lang},
			AcceptLanguage: tag + "," + lang + ";q=0.9,en-US;q=0.7",
		}
	}
	log.Debug("locale: no usable system locale found")
	return nil
}

func localeFromTimezone(q LocaleQuery) *LocaleProfile {
	if q.Timezone == "" {
		return nil
	}
	return timezoneLocales[q.Timezone]
}

func localeFromRegion(q LocaleQuery) *LocaleProfile {
	if q.Timezone == "" {
		return nil
	}
	region := strings.SplitN(q.Timezone, "/", 2)[0]
	return regionLocales[region]
}

func localeFromDefault(q LocaleQuery) *LocaleProfile {
	return regionLocales[defaultLocaleRegion]
}
