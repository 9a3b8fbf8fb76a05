// Package prompt renders cleaner and function-caller prompt templates
// against a context bundle.
package prompt

import (
	"fmt"
	"strings"
)

// Render substitutes every `{name}` placeholder in tmpl with context[name].
// A placeholder with no matching key is an error: a partially rendered
// prompt would silently reach the LLM with literal brace syntax in it.
func Render(tmpl string, context map[string]string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		open := strings.IndexByte(tmpl[i:], '{')
		if open == -1 {
			out.WriteString(tmpl[i:])
			break
		}
		open += i
		out.WriteString(tmpl[i:open])

		close := strings.IndexByte(tmpl[open:], '}')
		if close == -1 {
			return "", fmt.Errorf("prompt: unterminated placeholder at offset %d", open)
		}
		close += open

		name := tmpl[open+1 : close]
		value, ok := context[name]
		if !ok {
			return "", fmt.Errorf("prompt: missing placeholder %q", name)
		}
		out.WriteString(value)
		i = close + 1
	}
	return out.String(), nil
}

// Placeholders returns the distinct `{name}` placeholder names referenced
// by tmpl, in first-occurrence order.
func Placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]struct{})
	i := 0
	for i < len(tmpl) {
		open := strings.IndexByte(tmpl[i:], '{')
		if open == -1 {
			break
		}
		open += i
		close := strings.IndexByte(tmpl[open:], '}')
		if close == -1 {
			break
		}
		close += open
		name := tmpl[open+1 : close]
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
		i = close + 1
	}
	return names
}
