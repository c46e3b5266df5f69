// Package prompts holds the embedded prompt templates for roadmap generation and revision.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed roadmap.json
var roadmapTemplates []byte

// A Pair is the system instruction and user template sent together in one completion.
type Pair struct {
	System string
	User   string
}

var (
	// Generate asks for a new roadmap plan.
	Generate = Pair{System: "generate-system", User: "generate-roadmap"}
	// Revise asks for a revised step list from learner feedback.
	Revise = Pair{System: "revise-system", User: "revise-steps"}
)

var placeholder = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

var templates = sync.OnceValues(func() (map[string]string, error) {
	var parsed map[string]string
	if err := json.Unmarshal(roadmapTemplates, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse roadmap.json: %w", err)
	}
	return parsed, nil
})

// Get returns the raw template stored under key.
func Get(key string) (string, error) {
	all, err := templates()
	if err != nil {
		return "", err
	}
	tmpl, ok := all[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in roadmap.json", key)
	}
	return tmpl, nil
}

// Render fills every {{.Name}} placeholder of the template under key in a single pass,
// so substituted values are never expanded again. A placeholder without a value is an error.
func Render(key string, data map[string]string) (string, error) {
	tmpl, err := Get(key)
	if err != nil {
		return "", err
	}
	if missing := missingValues(tmpl, data); len(missing) > 0 {
		return "", fmt.Errorf("prompt %q has no value for %s", key, strings.Join(missing, ", "))
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		return data[placeholder.FindStringSubmatch(m)[1]]
	}), nil
}

// Build renders the user template of p with data and prefixes the system instruction.
func (p Pair) Build(data map[string]string) (string, error) {
	system, err := Get(p.System)
	if err != nil {
		return "", err
	}
	user, err := Render(p.User, data)
	if err != nil {
		return "", err
	}
	if system == "" {
		return user, nil
	}
	return system + "\n\n" + user, nil
}

// MustBuild is Build for callers whose data always covers the template.
func (p Pair) MustBuild(data map[string]string) string {
	prompt, err := p.Build(data)
	if err != nil {
		panic(fmt.Sprintf("failed to build prompt: %v", err))
	}
	return prompt
}

func missingValues(tmpl string, data map[string]string) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		name := m[1]
		if _, ok := data[name]; ok || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return missing
}
