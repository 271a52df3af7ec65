package transition

import (
	"fmt"
	"strings"
)

// Supported locales
const (
	LocalePtBR    = "pt-BR"
	LocaleEnglish = "en"
)

// DefaultLocale is used when no locale or an unknown one is configured.
const DefaultLocale = LocalePtBR

// Catalog holds the user-facing texts of the authorizer.
type Catalog struct {
	Locale string
	// UnmetDependencies takes the comma-joined titles.
	UnmetDependencies string
	UnmetRemediation  string
	// HasDependents takes the count and the comma-joined titles.
	HasDependents          string
	HasDependentsRemediate string
}

var catalogs = map[string]Catalog{
	LocalePtBR: {
		Locale:                 LocalePtBR,
		UnmetDependencies:      "Não é possível concluir: dependências não concluídas (%s)",
		UnmetRemediation:       "conclua as dependências antes de mover este card",
		HasDependents:          "Não é possível reabrir: %d card(s) dependem deste card (%s)",
		HasDependentsRemediate: "remova a dependência ou mova os cards dependentes primeiro",
	},
	LocaleEnglish: {
		Locale:                 LocaleEnglish,
		UnmetDependencies:      "Cannot complete: unmet dependencies (%s)",
		UnmetRemediation:       "finish the dependencies before moving this card",
		HasDependents:          "Cannot reopen: %d card(s) depend on this one (%s)",
		HasDependentsRemediate: "remove the dependency or move the dependent cards first",
	},
}

// Messages returns the catalog for locale, falling back to the default.
// Matching ignores case and accepts a bare language ("pt", "en-US").
func Messages(locale string) Catalog {
	norm := strings.ToLower(strings.TrimSpace(locale))
	for key, c := range catalogs {
		if strings.ToLower(key) == norm {
			return c
		}
	}
	lang, _, _ := strings.Cut(norm, "-")
	lang, _, _ = strings.Cut(lang, "_")
	switch lang {
	case "en":
		return catalogs[LocaleEnglish]
	case "pt":
		return catalogs[LocalePtBR]
	}
	return catalogs[DefaultLocale]
}

// Locales lists the supported locales.
func Locales() []string {
	return []string{LocalePtBR, LocaleEnglish}
}

func (c Catalog) unmet(titles []string) string {
	return fmt.Sprintf(c.UnmetDependencies, strings.Join(titles, ", "))
}

func (c Catalog) dependents(titles []string) string {
	return fmt.Sprintf(c.HasDependents, len(titles), strings.Join(titles, ", "))
}
