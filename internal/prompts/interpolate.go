package prompts

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

// Interpolate replaces every {{KEY}} occurrence whose KEY is present in vars.
// Unknown placeholders are left intact.
func Interpolate(template string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(template, "{{") {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// MissingPlaceholders lists placeholder keys that remain after interpolation, in order of first appearance.
func MissingPlaceholders(rendered string) []string {
	matches := placeholderRe.FindAllStringSubmatch(rendered, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// ForCall renders the system prompt for one destination number.
func (p Prompt) ForCall(phoneNumber string) string {
	return Interpolate(p.SystemPrompt, map[string]string{PlaceholderCustomerPhone: phoneNumber})
}
