package fhirschema

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

//go:embed templates/*.sql
var embeddedTemplates embed.FS

// TemplateSet resolves procedure bodies from <name>.sql files, substituting
// {{TOKEN}} placeholders. Tokens passed at construction apply to every
// render; per-render tokens win on collision
type TemplateSet struct {
	fsys   fs.FS
	tokens map[string]string
}

func NewTemplateSet(fsys fs.FS, tokens map[string]string) *TemplateSet {
	return &TemplateSet{fsys: fsys, tokens: tokens}
}

// DefaultTemplates returns the embedded procedure bodies
func DefaultTemplates(tokens map[string]string) *TemplateSet {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return NewTemplateSet(sub, tokens)
}

// ResourceTokens builds the per-resource-type substitutions: the original
// name and its lower-cased identifier form
func ResourceTokens(resourceType string) map[string]string {
	return map[string]string{
		"RESOURCE_TYPE":    resourceType,
		"LC_RESOURCE_TYPE": lcName(resourceType),
	}
}

var templateToken = regexp.MustCompile(`\{\{[A-Z][A-Z0-9_]*\}\}`)

// Render loads <name>.sql and substitutes all tokens. A placeholder left
// unresolved after substitution is an error: a procedure body with a literal
// {{TOKEN}} in it would be applied verbatim
func (ts *TemplateSet) Render(name string, extra map[string]string) (string, error) {
	raw, err := fs.ReadFile(ts.fsys, name+".sql")
	if err != nil {
		return "", fmt.Errorf("loading template %s: %w", name, err)
	}

	merged := make(map[string]string, len(ts.tokens)+len(extra))
	for token, value := range ts.tokens {
		merged[token] = value
	}
	for token, value := range extra {
		merged[token] = value
	}

	rendered := templateToken.ReplaceAllStringFunc(string(raw), func(placeholder string) string {
		token := placeholder[2 : len(placeholder)-2]
		if value, ok := merged[token]; ok {
			return value
		}
		return placeholder
	})
	if leftover := templateToken.FindString(rendered); leftover != "" {
		return "", fmt.Errorf("rendering template %s: unresolved token %s", name, leftover)
	}
	return rendered, nil
}

// Body defers Render to apply time
func (ts *TemplateSet) Body(name string, extra map[string]string) model.BodyProvider {
	return func() (string, error) {
		return ts.Render(name, extra)
	}
}
