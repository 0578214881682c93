package assets

import (
	"fmt"
	"strings"

	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/model"
	"github.com/3leaps/relinstall/internal/platform"
)

// Criteria narrows the candidate set before scoring.
type Criteria struct {
	// Pattern is a glob over asset names; empty means score every asset.
	Pattern string
}

// Select returns the best asset for profile. A pattern narrows the candidate
// set but scoring still orders what remains.
func Select(assets []model.Asset, profile platform.Profile, c Criteria) (model.Asset, error) {
	if len(assets) == 0 {
		return model.Asset{}, noMatch(assets, profile, c, "release has no assets")
	}

	candidates := assets
	if c.Pattern != "" {
		candidates = filter(assets, c.Pattern, Match)
		if len(candidates) == 0 {
			candidates = filter(assets, c.Pattern, MatchFold)
		}
		switch len(candidates) {
		case 0:
			return model.Asset{}, noMatch(assets, profile, c, "no asset matches pattern")
		case 1:
			return candidates[0], nil
		}
	}

	best, ok := Best(Rank(candidates, profile))
	if ok {
		return best.Asset, nil
	}
	if c.Pattern != "" {
		return candidates[0], nil
	}
	return model.Asset{}, noMatch(assets, profile, c, "no asset names this platform")
}

// Best returns the highest-scoring non-excluded entry. Ties keep the earlier
// entry.
func Best(ranked []Ranked) (Ranked, bool) {
	var (
		best  Ranked
		found bool
	)
	for _, r := range ranked {
		if r.Score.Excluded != "" {
			continue
		}
		if !found || r.Score.Total() > best.Score.Total() {
			best, found = r, true
		}
	}
	return best, found
}

func filter(assets []model.Asset, pattern string, match func(string, string) bool) []model.Asset {
	var out []model.Asset
	for _, a := range assets {
		if match(pattern, a.Name) {
			out = append(out, a)
		}
	}
	return out
}

func noMatch(assets []model.Asset, profile platform.Profile, c Criteria, reason string) error {
	names := make([]string, 0, len(assets))
	for _, a := range assets {
		names = append(names, a.Name)
	}
	detail := fmt.Sprintf("%s for %s", reason, profile)
	if c.Pattern != "" {
		detail += fmt.Sprintf(" (asset_pattern=%q)", c.Pattern)
	}
	hint := "set asset_pattern to one of the available assets"
	if len(names) > 0 {
		hint = fmt.Sprintf("available assets: %s; set asset_pattern to choose one", strings.Join(names, ", "))
	}
	return failure.New(failure.KindNoMatchingAsset, hint, "%s", detail)
}
