// Package version maps a user version constraint onto a forge release tag.
//
// Three prefix policies exist. The default policy accepts the requested
// version with or without a leading "v" and displays tags without it. A custom
// prefix ("release-") is matched exactly and stripped for display. An explicit
// empty prefix matches and displays tags verbatim.
package version

import (
	"strings"

	"github.com/3leaps/relinstall/internal/failure"
)

// Prefix is the version_prefix policy. The zero value is the default policy.
type Prefix struct {
	value string
	set   bool
}

// DefaultPrefix applies the conventional "v" handling.
var DefaultPrefix = Prefix{}

// NoPrefix matches and displays tags verbatim.
func NoPrefix() Prefix { return Prefix{set: true} }

// CustomPrefix requires tags to start with p.
func CustomPrefix(p string) Prefix { return Prefix{value: p, set: true} }

// PrefixFrom converts an optional configuration value into a policy.
func PrefixFrom(p *string) Prefix {
	if p == nil {
		return DefaultPrefix
	}
	return CustomPrefix(*p)
}

func (p Prefix) String() string {
	switch {
	case !p.set:
		return "default"
	case p.value == "":
		return `""`
	default:
		return p.value
	}
}

// accepts reports whether tag passes the prefix test used for listing.
func (p Prefix) accepts(tag string) bool {
	return !p.set || strings.HasPrefix(tag, p.value)
}

// Constraint is either Latest or an exact version string.
type Constraint struct {
	exact string
}

func Latest() Constraint { return Constraint{} }

// Exact returns a constraint for v. "" and "latest" both mean Latest.
func Exact(v string) Constraint {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "latest") {
		v = ""
	}
	return Constraint{exact: v}
}

func (c Constraint) IsLatest() bool { return c.exact == "" }

func (c Constraint) String() string {
	if c.IsLatest() {
		return "latest"
	}
	return c.exact
}

// Resolved pairs the user-facing version with the tag it came from.
type Resolved struct {
	Version string
	Tag     string
}

// Resolve picks the tag for c out of tags, which must be ordered newest first.
func Resolve(c Constraint, prefix Prefix, tags []string) (Resolved, error) {
	if c.IsLatest() {
		for _, tag := range tags {
			if prefix.accepts(tag) {
				return Resolved{Version: StripPrefix(tag, prefix), Tag: tag}, nil
			}
		}
		return Resolved{}, notFound(c, prefix, len(tags))
	}

	for _, candidate := range Candidates(c.exact, prefix) {
		for _, tag := range tags {
			if tag == candidate {
				return Resolved{Version: display(c.exact, tag, prefix), Tag: tag}, nil
			}
		}
	}
	return Resolved{}, notFound(c, prefix, len(tags))
}

// Candidates lists the tag spellings tried for a requested version, in
// preference order. Only the default policy tries a second spelling.
func Candidates(requested string, prefix Prefix) []string {
	if prefix.set {
		return []string{prefix.value + requested}
	}
	if stripped, ok := strings.CutPrefix(requested, "v"); ok && stripped != "" {
		return []string{requested, stripped}
	}
	return []string{requested, "v" + requested}
}

// StripPrefix returns the display form of tag under prefix.
func StripPrefix(tag string, prefix Prefix) string {
	if prefix.set {
		return strings.TrimPrefix(tag, prefix.value)
	}
	return strings.TrimPrefix(tag, "v")
}

func display(requested, tag string, prefix Prefix) string {
	if prefix.set && prefix.value != "" {
		return requested
	}
	return StripPrefix(tag, prefix)
}

// List returns the installable versions among tags, keeping input order.
// Tags failing the prefix test are dropped. When several tags share a display
// form, the tag equal to that form wins, otherwise the first one seen.
func List(prefix Prefix, tags []string) []Resolved {
	out := make([]Resolved, 0, len(tags))
	index := make(map[string]int, len(tags))
	for _, tag := range tags {
		if !prefix.accepts(tag) {
			continue
		}
		r := Resolved{Version: StripPrefix(tag, prefix), Tag: tag}
		if i, seen := index[r.Version]; seen {
			if out[i].Tag != out[i].Version && tag == r.Version {
				out[i] = r
			}
			continue
		}
		index[r.Version] = len(out)
		out = append(out, r)
	}
	return out
}

func notFound(c Constraint, prefix Prefix, count int) error {
	return failure.New(failure.KindVersionNotFound,
		"list available versions with `relinstall ls-remote`, or set version_prefix",
		"version %s not found (version_prefix=%s, %d tags considered)", c, prefix, count)
}
