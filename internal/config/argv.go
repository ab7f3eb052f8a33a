package config

import (
	"fmt"
	"strings"
	"unicode"
)

// argvScanner splits a shell-like command line. It understands single and
// double quotes and backslash escapes, nothing else: no globbing and no
// variable expansion.
type argvScanner struct {
	args    []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (s *argvScanner) feed(r rune) {
	switch {
	case s.escaped:
		s.escaped = false
		s.add(r)
	case r == '\\' && s.quote != '\'':
		s.escaped = true
		s.inWord = true
	case s.quote != 0 && r == s.quote:
		s.quote = 0
	case s.quote != 0:
		s.add(r)
	case r == '\'' || r == '"':
		s.quote = r
		s.inWord = true
	case unicode.IsSpace(r):
		s.endWord()
	default:
		s.add(r)
	}
}

func (s *argvScanner) add(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *argvScanner) endWord() {
	if !s.inWord {
		return
	}
	s.args = append(s.args, s.word.String())
	s.word.Reset()
	s.inWord = false
}

// parseArgv turns a configured command string into argv. Blank input and
// lines starting with '#' disable the command.
func parseArgv(input string) ([]string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || trimmed[0] == '#' {
		return nil, nil
	}

	var s argvScanner
	for _, r := range trimmed {
		s.feed(r)
	}
	switch {
	case s.escaped:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", trimmed)
	case s.quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", trimmed)
	}
	s.endWord()
	return s.args, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
