// Package user resolves raw inbound identifiers to canonical display names.
package user

import (
	"regexp"
	"strings"

	"placewatch/presence-server/internal/model"
)

// DefaultName is substituted when a fix arrives without a user identifier.
const DefaultName = "Dummy"

var keyUnsafe = regexp.MustCompile(`[\s.]`)

// Resolver applies the configured alias table.
type Resolver struct {
	aliases []model.UserAlias
}

// NewResolver builds a resolver over the configured alias list.
func NewResolver(aliases []model.UserAlias) *Resolver {
	return &Resolver{aliases: aliases}
}

// Resolve maps a raw identifier to its canonical name. Empty input yields
// DefaultName; otherwise the first alias whose name matches
// case-insensitively wins and later entries are not considered. Aliases
// with an empty replacement are skipped. Unmatched input passes through
// unchanged.
func (r *Resolver) Resolve(raw string) string {
	if raw == "" {
		return DefaultName
	}

	for _, alias := range r.aliases {
		if alias.Replacement == "" {
			continue
		}
		if strings.EqualFold(raw, alias.Name) {
			return alias.Replacement
		}
	}

	return raw
}

// StorageKey renders a canonical name safe for use as a state key by
// replacing whitespace and periods with underscores.
func StorageKey(name string) string {
	return keyUnsafe.ReplaceAllString(name, "_")
}
