// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"fmt"
	"html"
	"html/template"
	"sort"
	"strings"
	"sync"
)

// ReasonTemplates are the texts used to explain a recommendation. Both
// accept the fields {{.Primary}} and {{.Secondary}}.
type ReasonTemplates struct {
	Single   string `koanf:"single" json:"single"`
	Multiple string `koanf:"multiple" json:"multiple"`
}

// DefaultReasonTemplates returns the built-in English templates.
func DefaultReasonTemplates() ReasonTemplates {
	return ReasonTemplates{
		Single:   "Recommended because it's {{.Primary}}.",
		Multiple: "Recommended because it's {{.Primary}} and {{.Secondary}}.",
	}
}

type compiledReasons struct {
	single   *template.Template
	multiple *template.Template
}

func compileReasonTemplates(t ReasonTemplates) (*compiledReasons, error) {
	single, err := template.New("single").Option("missingkey=zero").Parse(t.Single)
	if err != nil {
		return nil, fmt.Errorf("single: %w", err)
	}
	multiple, err := template.New("multiple").Option("missingkey=zero").Parse(t.Multiple)
	if err != nil {
		return nil, fmt.Errorf("multiple: %w", err)
	}
	return &compiledReasons{single: single, multiple: multiple}, nil
}

// ReasonWriter renders candidate reasons from the top scoring plugins.
// It is safe for concurrent use.
type ReasonWriter struct {
	order    func(pluginID string) int
	mu       sync.RWMutex
	compiled map[string]*compiledReasons
}

// NewReasonWriter compiles templates keyed by language code; the empty key
// is the fallback. order ranks plugin ids for tie-breaking.
func NewReasonWriter(templates map[string]ReasonTemplates, order func(pluginID string) int) (*ReasonWriter, error) {
	w := &ReasonWriter{order: order, compiled: make(map[string]*compiledReasons, len(templates)+1)}
	if _, ok := templates[""]; !ok {
		c, err := compileReasonTemplates(DefaultReasonTemplates())
		if err != nil {
			return nil, err
		}
		w.compiled[""] = c
	}
	for lang, t := range templates {
		c, err := compileReasonTemplates(t)
		if err != nil {
			return nil, fmt.Errorf("reason templates %q: %w", lang, err)
		}
		w.compiled[lang] = c
	}
	return w, nil
}

// RankedScore is a plugin score after the combiner's adjustment.
type RankedScore struct {
	PluginID string
	Score    float64
	Reason   string
}

// TopReasons orders scores descending, ties by plugin order, and returns
// up to two reasons.
func (w *ReasonWriter) TopReasons(scores []RankedScore) []string {
	ranked := make([]RankedScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if w.order == nil {
			return false
		}
		return w.order(ranked[i].PluginID) < w.order(ranked[j].PluginID)
	})
	if len(ranked) > 2 {
		ranked = ranked[:2]
	}
	reasons := make([]string, len(ranked))
	for i := range ranked {
		reasons[i] = ranked[i].Reason
	}
	return reasons
}

// Render explains a candidate scored by scores in the given language.
func (w *ReasonWriter) Render(scores []RankedScore, lang string) (string, error) {
	reasons := w.TopReasons(scores)
	if len(reasons) == 0 {
		return "", nil
	}

	tpl := w.templatesFor(lang)
	data := struct{ Primary, Secondary string }{Primary: reasons[0]}
	t := tpl.single
	if len(reasons) > 1 {
		data.Secondary = reasons[1]
		t = tpl.multiple
	}

	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render reason: %w", err)
	}
	return html.UnescapeString(b.String()), nil
}

func (w *ReasonWriter) templatesFor(lang string) *compiledReasons {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if c, ok := w.compiled[lang]; ok {
		return c
	}
	if i := strings.IndexByte(lang, '-'); i > 0 {
		if c, ok := w.compiled[lang[:i]]; ok {
			return c
		}
	}
	return w.compiled[""]
}
