// Package answers merges configuration answers from layered sources into the
// final answer set used to generate a device configuration.
//
// Sources are ordered by precedence and scanned first-match-wins per question
// name. Precedence order is data (the slice passed to Resolve), not code
// order, so it is independently testable.
package answers

import (
	"strings"

	"github.com/aniongithub/balena-cli/internal/devicetype"
)

// Source is a named mapping from question name to answer value. Nil values
// are treated as absent.
type Source struct {
	Name   string
	Values map[string]any
}

// Lookup returns the value for name, and whether the source supplies one.
func (s Source) Lookup(name string) (any, bool) {
	v, ok := s.Values[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Empty reports whether the source supplies no values at all.
func (s Source) Empty() bool {
	for _, v := range s.Values {
		if v != nil {
			return false
		}
	}
	return true
}

// FromFlags builds the highest-precedence source from raw command-line flag
// values. Flag names use the kebab form `config-xxx-yyy`, which maps to the
// answer key `xxxYyy`. Empty string values are dropped so an unset flag never
// shadows a lower-precedence source.
func FromFlags(flags map[string]string) Source {
	values := make(map[string]any, len(flags))
	for name, value := range flags {
		if value == "" {
			continue
		}
		values[NormalizeFlagName(name)] = value
	}
	return Source{Name: "flags", Values: values}
}

// NormalizeFlagName converts a `config-xxx-yyy` flag name to its camelCase
// answer key `xxxYyy`. Names without the config prefix are camelized as-is.
func NormalizeFlagName(flag string) string {
	flag = strings.TrimPrefix(flag, "config-")
	parts := strings.Split(flag, "-")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// AdvancedDefaults synthesizes a source holding the manifest-declared default
// for every question of the advanced group. It is appended at lowest
// precedence when advanced mode is disabled, so advanced questions are
// silently pre-answered rather than prompted. Questions without a default are
// left out and therefore remain promptable.
func AdvancedDefaults(m *devicetype.Manifest) Source {
	values := make(map[string]any)
	for _, q := range devicetype.GroupQuestions(m, devicetype.AdvancedGroup) {
		if q.Default == nil {
			continue
		}
		values[q.Name] = q.Default
	}
	return Source{Name: "advanced-defaults", Values: values}
}
