package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC blanks comments and trailing commas with spaces so the
// result is plain JSON with the same byte offsets as the input. Decode
// errors therefore point at the user's original line and column.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)
	pendingComma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch {
		case ch == '"':
			i = stringEnd(out, i)
			pendingComma = -1
		case ch == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' && out[i] != '\r' {
				out[i] = ' '
				i++
			}
			i--
		case ch == '/' && i+1 < len(out) && out[i+1] == '*':
			n := strings.Index(content[i+2:], "*/")
			if n < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			end := i + 2 + n + 2
			blankComment(out[i:end])
			i = end - 1
		case ch == ',':
			pendingComma = i
		case ch == '}' || ch == ']':
			if pendingComma >= 0 {
				out[pendingComma] = ' '
			}
			pendingComma = -1
		case isJSONWhitespace(ch):
		default:
			pendingComma = -1
		}
	}
	return string(out), nil
}

// stringEnd returns the index of the quote closing the string that opens at
// start, or the last index when the string is unterminated.
func stringEnd(b []byte, start int) int {
	for j := start + 1; j < len(b); j++ {
		switch b[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return len(b) - 1
}

func blankComment(b []byte) {
	for k, ch := range b {
		if ch != '\n' && ch != '\r' && ch != '\t' {
			b[k] = ' '
		}
	}
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	switch err := decoder.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// wrapJSONDecodeError prefixes syntax and type errors with a line/column.
func wrapJSONDecodeError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol locates the offset-th byte (1-based) of content.
func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 || content == "" {
		return 1, 1
	}
	prefix := content[:min(int(offset), len(content))-1]
	line := 1 + strings.Count(prefix, "\n")
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
