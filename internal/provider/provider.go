// Package provider defines the boundary to external issue trackers.
package provider

import (
	"sort"

	"boardd/internal/model"
)

// Provider translates remote tracker objects into card attributes.
type Provider interface {
	// BatchImport parses one import request body and calls emit once
	// per card to create, synchronously and in payload order. A
	// returned error ends the import; nothing emitted before the error
	// is retracted by the provider.
	BatchImport(board *model.Board, body []byte, emit func(model.CardAttributes)) error

	// NewCard builds card attributes from a single webhook issue.
	NewCard(repoID string, issue *model.RemoteIssue) model.CardAttributes

	// CanImport reports whether a linked repo has anything to import.
	CanImport(repo model.RemoteRepo) bool
}

// Registry is a static name-to-provider mapping resolved at startup.
// Lookups of unknown names fail; there is no dynamic dispatch.
type Registry struct {
	byName map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Provider)}
}

func (r *Registry) Register(name string, p Provider) {
	r.byName[name] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
