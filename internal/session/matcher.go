package session

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher decides whether an interim result is worth emitting before the
// recognizer finalizes.
type Matcher struct {
	answer   *regexp.Regexp
	triggers []string
}

// DefaultAnswerWords are the affirmative and negative replies honored while
// a yes/no question is pending.
var DefaultAnswerWords = []string{"yes", "yeah", "yep", "yup", "no", "nope", "nah"}

// DefaultTriggers are game phrases that end listening early.
var DefaultTriggers = []string{"i spy"}

func DefaultMatcher() Matcher {
	m, err := NewMatcher(DefaultAnswerWords, DefaultTriggers)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMatcher compiles answer words into a case-insensitive whole-word
// pattern. Triggers match against letters only, so "I-Spy" and "i spy" are
// equivalent.
func NewMatcher(answerWords []string, triggers []string) (Matcher, error) {
	var m Matcher

	quoted := make([]string, 0, len(answerWords))
	for _, word := range answerWords {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(word))
	}
	if len(quoted) > 0 {
		re, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return Matcher{}, fmt.Errorf("compile answer words: %w", err)
		}
		m.answer = re
	}

	for _, trigger := range triggers {
		if n := lettersOnly(trigger); n != "" {
			m.triggers = append(m.triggers, n)
		}
	}
	return m, nil
}

// Match scans every alternative for an answer word (only while awaiting an
// answer) or a trigger phrase.
func (m Matcher) Match(alternatives []string, awaitingAnswer bool) bool {
	for _, alt := range alternatives {
		if awaitingAnswer && m.IsAnswer(alt) {
			return true
		}
		if m.HasTrigger(alt) {
			return true
		}
	}
	return false
}

func (m Matcher) IsAnswer(text string) bool {
	return m.answer != nil && m.answer.MatchString(text)
}

func (m Matcher) HasTrigger(text string) bool {
	normalized := lettersOnly(text)
	if normalized == "" {
		return false
	}
	for _, trigger := range m.triggers {
		if strings.Contains(normalized, trigger) {
			return true
		}
	}
	return false
}

func lettersOnly(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
