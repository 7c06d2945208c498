// Package prompt renders instruction templates for agent calls. Templates use
// Go text/template syntax with a few string helpers.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Render substitutes template variables in text using data. Text without
// template markers is returned unchanged without parsing.
func Render(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Funcs(template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"money": func(v float64) string {
			return fmt.Sprintf("$%.2f", v)
		},
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}
	return buf.String(), nil
}
