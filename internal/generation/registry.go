package generation

import (
	"context"
	"slices"
	"strings"
)

// Factory builds a Completer for one invocation.
type Factory func(ctx context.Context, connection Connection, settings Settings) (Completer, error)

// Variant describes one vendor integration and how its command behaves.
type Variant struct {
	Name             string
	Aliases          []string
	Description      string
	Profile          Profile
	DefaultEndpoint  string
	APIKeyEnv        string
	AllowedModels    []string
	SupportsSeed     bool
	OpenAICompatible bool
	Factory          Factory
}

// AllowsModel reports whether model may be used with this variant.
func (v Variant) AllowsModel(model string) bool {
	return len(v.AllowedModels) == 0 || slices.Contains(v.AllowedModels, model)
}

type Registry struct {
	variants map[string]Variant
	aliases  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{variants: map[string]Variant{}, aliases: map[string]string{}}
}

func (r *Registry) Register(variant Variant) {
	name := normalizeName(variant.Name)
	r.variants[name] = variant
	for _, alias := range variant.Aliases {
		r.aliases[normalizeName(alias)] = name
	}
}

// Names returns the canonical variant names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.variants))
	for name := range r.variants {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Lookup resolves a canonical name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (Variant, bool) {
	normalized := normalizeName(name)
	if canonical, ok := r.aliases[normalized]; ok {
		normalized = canonical
	}
	variant, ok := r.variants[normalized]
	return variant, ok
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
