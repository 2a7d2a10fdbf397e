package notifications

import (
	"sort"
	"strings"
)

// Scope decides whether a verb is tied to a single community
type Scope int

const (
	// ScopeCommunity verbs only reach active members and only show in that community's inbox
	ScopeCommunity Scope = iota
	// ScopeGlobal verbs skip the membership filter and show in every inbox of the recipient
	ScopeGlobal
)

// DefaultGlobalVerbs are the verbs that are not community-scoped unless configured otherwise
var DefaultGlobalVerbs = []string{VerbNewFollower}

// Scopes is the per-verb scope configuration
type Scopes struct {
	global map[string]bool
}

// NewScopes creates a configuration in which the listed verbs are global.
// Every other verb is community-scoped.
func NewScopes(globalVerbs []string) *Scopes {
	s := &Scopes{global: make(map[string]bool)}
	for _, v := range globalVerbs {
		v = strings.TrimSpace(v)
		if v != "" {
			s.global[v] = true
		}
	}
	return s
}

// DefaultScopes returns the stock configuration
func DefaultScopes() *Scopes {
	return NewScopes(DefaultGlobalVerbs)
}

// Of returns the scope of a verb
func (s *Scopes) Of(verb string) Scope {
	if s != nil && s.global[verb] {
		return ScopeGlobal
	}
	return ScopeCommunity
}

// IsGlobal reports whether a verb is global
func (s *Scopes) IsGlobal(verb string) bool {
	return s.Of(verb) == ScopeGlobal
}

// GlobalVerbs returns the global verbs in sorted order
func (s *Scopes) GlobalVerbs() []string {
	if s == nil {
		return nil
	}
	verbs := make([]string, 0, len(s.global))
	for v := range s.global {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}
