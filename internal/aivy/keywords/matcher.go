// Package keywords implements the keyword presence tests shared by the
// intent classifier, the state updater and the knowledge prioritizer.
//
// Two modes exist. Substring mode tests plain containment, so "ai" also
// matches inside "detail"; this is the historical behaviour and the
// default. Word mode requires the keyword to sit on word boundaries.
package keywords

import (
	"regexp"
	"strings"
	"sync"
)

type Mode string

const (
	Substring Mode = "substring"
	Word      Mode = "word"
)

// Matcher tests lower-cased text against lower-cased keywords.
type Matcher struct {
	mode Mode

	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

func NewMatcher(mode Mode) *Matcher {
	if mode != Word {
		mode = Substring
	}
	return &Matcher{mode: mode, patterns: make(map[string]*regexp.Regexp)}
}

// ParseMode maps a config value to a Mode, defaulting to Substring.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == Word {
		return Word
	}
	return Substring
}

var defaultMatcher = NewMatcher(Substring)

// Default returns the shared substring matcher.
func Default() *Matcher { return defaultMatcher }

func (m *Matcher) Mode() Mode { return m.mode }

func (m *Matcher) Contains(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	if m.mode == Substring {
		return strings.Contains(text, keyword)
	}
	return m.pattern(keyword).MatchString(text)
}

// Any reports whether at least one keyword is present.
func (m *Matcher) Any(text string, keywords []string) bool {
	for _, kw := range keywords {
		if m.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Count returns how many distinct keywords of the list are present.
func (m *Matcher) Count(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if m.Contains(text, kw) {
			n++
		}
	}
	return n
}

func (m *Matcher) pattern(keyword string) *regexp.Regexp {
	m.mu.RLock()
	re, ok := m.patterns[keyword]
	m.mu.RUnlock()
	if ok {
		return re
	}

	re = regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	m.mu.Lock()
	m.patterns[keyword] = re
	m.mu.Unlock()
	return re
}
