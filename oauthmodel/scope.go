package oauthmodel

import (
	"slices"
	"strings"
)

const (
	ScopeUserInfoRead  = "user_info:read"
	ScopeUserInfoWrite = "user_info:write"
)

// ParseScopes splits a scope string. Scopes are comma separated; spaces are
// accepted too so standard OAuth2 clients interoperate. Duplicates are dropped.
func ParseScopes(scope string) []string {
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ',' || r == ' '
	})
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" && !slices.Contains(result, f) {
			result = append(result, f)
		}
	}
	return result
}

// JoinScopes renders scopes in the comma separated wire form.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, ",")
}

// IntersectScopes returns the scopes of requested that are also in allowed, in requested order.
func IntersectScopes(requested, allowed []string) []string {
	result := make([]string, 0, len(requested))
	for _, s := range requested {
		if slices.Contains(allowed, s) {
			result = append(result, s)
		}
	}
	return result
}

// ScopeLabel returns the human readable description shown on the consent view.
func ScopeLabel(scope string) string {
	switch scope {
	case ScopeUserInfoRead:
		return "Read your user information"
	case ScopeUserInfoWrite:
		return "Change your user information"
	}
	return scope
}
