package tasks

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// UnresolvedKeyError reports template placeholders with no value in
// the substitution data.
type UnresolvedKeyError struct {
	Keys []string
}

func (e *UnresolvedKeyError) Error() string {
	return fmt.Sprintf("template has unresolved placeholders: %s", strings.Join(e.Keys, ", "))
}

// RenderTemplate substitutes {key} placeholders from data. Only keys
// present in data are substituted; any placeholder left unresolved is
// an error rather than silently passed through.
func RenderTemplate(template string, data map[string]string) (string, error) {
	var unresolved []string
	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := data[key]
		if !ok {
			unresolved = append(unresolved, key)
			return match
		}
		return value
	})
	if len(unresolved) > 0 {
		return "", &UnresolvedKeyError{Keys: unresolved}
	}
	return rendered, nil
}
