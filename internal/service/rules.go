package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"

	"github.com/specialist-recommender/internal/domain"
)

// Matcher decides whether lowercased symptom text triggers a rule
type Matcher interface {
	Match(text string) bool
}

// Rule maps a keyword matcher to a specialist
type Rule struct {
	Name       string
	Specialist domain.SpecialistLabel
	Matcher    Matcher
}

// RuleTable is an ordered list of rules; the first match wins
type RuleTable struct {
	rules []Rule
}

// NewRuleTable creates a table evaluated in the given order
func NewRuleTable(rules ...Rule) *RuleTable {
	return &RuleTable{rules: rules}
}

// DefaultRules returns the anatomical keyword overrides. Genital keywords
// need whole-word matches and run first; the eye and skin phrases match
// anywhere in the text.
func DefaultRules() (*RuleTable, error) {
	eye, err := NewSubstringMatcher("eye", "vision")
	if err != nil {
		return nil, err
	}
	skin, err := NewSubstringMatcher("skin rash", "itchy skin")
	if err != nil {
		return nil, err
	}

	return NewRuleTable(
		Rule{
			Name:       "male_genital",
			Specialist: domain.Urologist,
			Matcher:    NewWordMatcher("genital", "penis", "scrotum", "testicle", "groin"),
		},
		Rule{
			Name:       "female_genital",
			Specialist: domain.Gynecologist,
			Matcher:    NewWordMatcher("vagina", "labia", "vulva"),
		},
		Rule{Name: "eye", Specialist: domain.Ophthalmologist, Matcher: eye},
		Rule{Name: "skin", Specialist: domain.Dermatologist, Matcher: skin},
	), nil
}

// Evaluate returns the first rule matching symptoms, case-insensitively
func (t *RuleTable) Evaluate(symptoms string) (*Rule, bool) {
	text := strings.ToLower(symptoms)
	for i := range t.rules {
		if t.rules[i].Matcher.Match(text) {
			return &t.rules[i], true
		}
	}
	return nil, false
}

// Len returns the number of rules
func (t *RuleTable) Len() int {
	return len(t.rules)
}

// WordMatcher matches any of its words between word boundaries
type WordMatcher struct {
	re *regexp.Regexp
}

// NewWordMatcher builds a matcher for whole-word occurrences of words
func NewWordMatcher(words ...string) *WordMatcher {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return &WordMatcher{
		re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Match implements Matcher
func (m *WordMatcher) Match(text string) bool {
	return m.re.MatchString(text)
}

// SubstringMatcher matches any of its phrases anywhere in the text using an
// Aho-Corasick automaton
type SubstringMatcher struct {
	machine *goahocorasick.Machine
}

// NewSubstringMatcher builds an automaton over the lowercased phrases
func NewSubstringMatcher(phrases ...string) (*SubstringMatcher, error) {
	if len(phrases) == 0 {
		return nil, fmt.Errorf("substring matcher needs at least one phrase")
	}
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	sort.Strings(lowered)

	patterns := make([][]rune, len(lowered))
	for i, p := range lowered {
		patterns[i] = []rune(p)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("failed to build substring matcher: %w", err)
	}
	return &SubstringMatcher{machine: m}, nil
}

// Match implements Matcher
func (m *SubstringMatcher) Match(text string) bool {
	if text == "" {
		return false
	}
	return len(m.machine.MultiPatternSearch([]rune(text), true)) > 0
}
