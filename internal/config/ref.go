package config

import (
	"strings"

	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/model"
	"github.com/3leaps/relinstall/internal/version"
)

const refHint = "use host/owner/repo or host/owner/repo@version, e.g. codeberg.org/mergiraf/mergiraf@0.4.0"

// ParseToolRef splits "host/owner/repo[@version]". An absent version or
// "latest" yields the latest constraint. A leading "forgejo:" is accepted.
func ParseToolRef(s string) (model.ToolRef, version.Constraint, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "forgejo:")
	path, requested, hasVersion := strings.Cut(raw, "@")
	if hasVersion && strings.TrimSpace(requested) == "" {
		return model.ToolRef{}, version.Constraint{}, failure.New(failure.KindInvalidInput, refHint,
			"tool %q has an empty version after @", s)
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return model.ToolRef{}, version.Constraint{}, failure.New(failure.KindInvalidInput, refHint,
			"tool %q must have the form host/owner/repo", s)
	}
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t") {
			return model.ToolRef{}, version.Constraint{}, failure.New(failure.KindInvalidInput, refHint,
				"tool %q has an empty or invalid path segment", s)
		}
	}

	ref := model.ToolRef{Host: strings.ToLower(parts[0]), Owner: parts[1], Repo: parts[2]}
	return ref, version.Exact(requested), nil
}
