package index

import (
	"context"
	"net/url"
	"strings"

	zlaunch "github.com/zortax/zlaunch"
)

// DetectionKind classifies query text against the search providers.
type DetectionKind int

const (
	// NoSearch means the query is empty.
	NoSearch DetectionKind = iota
	// Triggered means the query starts with a provider trigger and a search term.
	Triggered
	// TriggerOnly means the query is a bare trigger with nothing to search yet.
	TriggerOnly
	// Fallback means no trigger matched; every provider may search the text.
	Fallback
)

// Detection is the outcome of DetectSearch.
type Detection struct {
	Kind DetectionKind
	// Provider is the matched provider entry when Kind is Triggered.
	Provider Entry
	// Query is the search term with the trigger removed.
	Query string
}

// DetectSearch looks for a "<trigger> <term>" prefix among providers.
func DetectSearch(input string, providers []Entry) Detection {
	text := strings.TrimSpace(input)
	if text == "" {
		return Detection{Kind: NoSearch}
	}
	for _, p := range providers {
		trigger := p.Action.Trigger
		if trigger == "" {
			continue
		}
		if text == trigger {
			return Detection{Kind: TriggerOnly}
		}
		if rest, ok := strings.CutPrefix(text, trigger+" "); ok {
			term := strings.TrimSpace(rest)
			if term == "" {
				return Detection{Kind: TriggerOnly}
			}
			return Detection{Kind: Triggered, Provider: p, Query: term}
		}
	}
	return Detection{Kind: Fallback, Query: text}
}

// Entry returns the provider entry resolved for the detected term.
func (d Detection) Entry() Entry {
	return FallbackEntry(d.Provider, d.Query)
}

// FallbackEntry resolves provider p for term: the title names the term and
// the action URL has it substituted.
func FallbackEntry(p Entry, term string) Entry {
	e := p
	e.Action.URL = BuildSearchURL(p.Action.URL, term)
	if term != "" {
		e.Title = "Search " + p.Action.Text + " for \"" + term + "\""
	}
	return e
}

// BuildSearchURL substitutes the query-escaped term for {query}.
func BuildSearchURL(template, term string) string {
	return strings.ReplaceAll(template, "{query}", url.QueryEscape(term))
}

// SearchSource lists the configured search providers.
type SearchSource struct {
	Providers []zlaunch.SearchProvider
}

func (s SearchSource) Load(context.Context) ([]Entry, error) {
	entries := make([]Entry, 0, len(s.Providers))
	for _, p := range s.Providers {
		entries = append(entries, Entry{
			ID:       "search-" + strings.ToLower(strings.ReplaceAll(p.Name, " ", "-")),
			Title:    "Search " + p.Name,
			Subtitle: p.Trigger,
			Icon:     p.Icon,
			Action: Action{
				Kind:    ActionURL,
				URL:     p.URL,
				Trigger: p.Trigger,
				Text:    p.Name,
			},
		})
	}
	return entries, nil
}
