package update

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

type Decision string

const (
	DecisionInstall   Decision = "install"   // Nothing installed yet
	DecisionSkip      Decision = "skip"      // Already at target version
	DecisionRefuse    Decision = "refuse"    // Cross-major change without force
	DecisionReinstall Decision = "reinstall" // Force reinstall same version
	DecisionUpgrade   Decision = "upgrade"   // Installed version is older
	DecisionDowngrade Decision = "downgrade" // Explicit version older than installed
	DecisionReplace   Decision = "replace"   // Versions not comparable
)

// Request describes one install decision.
type Request struct {
	Tool string
	// Installed is the version recorded in the destination, "" when empty.
	Installed string
	Target    string
	// Explicit is true when the user asked for a specific version.
	Explicit bool
	Force    bool
}

// NormalizeVersion returns v in canonical "vMAJOR.MINOR.PATCH[-pre]" form.
// ok is false for empty, "dev" and non-semver versions.
func NormalizeVersion(v string) (string, bool) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" || trimmed == "dev" || trimmed == "0.0.0-dev" {
		return "", false
	}
	candidate := "v" + strings.TrimPrefix(trimmed, "v")
	core := candidate
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	// semver accepts a bare major as shorthand; tool tags need at least MAJOR.MINOR.
	if !strings.Contains(core, ".") || !semver.IsValid(candidate) {
		return "", false
	}
	return semver.Canonical(candidate), true
}

// CompareSemver compares two versions accepted by NormalizeVersion.
// Build metadata is ignored.
func CompareSemver(a, b string) (int, error) {
	an, ok := NormalizeVersion(a)
	if !ok {
		return 0, fmt.Errorf("invalid semver %q", a)
	}
	bn, ok := NormalizeVersion(b)
	if !ok {
		return 0, fmt.Errorf("invalid semver %q", b)
	}
	return semver.Compare(an, bn), nil
}

// Decide determines whether an install into an existing destination should
// proceed. The returned exit code is 1 only for DecisionRefuse.
func Decide(r Request) (Decision, string, int) {
	if strings.TrimSpace(r.Installed) == "" {
		return DecisionInstall, fmt.Sprintf("Installing %s %s", r.Tool, r.Target), 0
	}

	cmp, err := CompareSemver(r.Installed, r.Target)
	if err != nil {
		if r.Installed == r.Target {
			return sameVersion(r)
		}
		msg := fmt.Sprintf("Version comparison skipped (installed=%q, target=%q). Replacing %s.", r.Installed, r.Target, r.Tool)
		return DecisionReplace, msg, 0
	}

	installed, _ := NormalizeVersion(r.Installed)
	target, _ := NormalizeVersion(r.Target)
	crossMajor := semver.Major(installed) != semver.Major(target)

	switch {
	case cmp == 0:
		return sameVersion(r)

	case cmp < 0:
		if crossMajor && !r.Explicit && !r.Force {
			msg := fmt.Sprintf("Refusing to upgrade %s across major versions (%s -> %s); pass the version explicitly or use --force.",
				r.Tool, r.Installed, r.Target)
			return DecisionRefuse, msg, 1
		}
		return DecisionUpgrade, fmt.Sprintf("Upgrading %s: %s -> %s", r.Tool, r.Installed, r.Target), 0

	default:
		if !r.Explicit {
			msg := fmt.Sprintf("%s %s is installed (target %s is older). Pass the version explicitly to downgrade.",
				r.Tool, r.Installed, r.Target)
			return DecisionSkip, msg, 0
		}
		if crossMajor && !r.Force {
			msg := fmt.Sprintf("Refusing to downgrade %s across major versions (%s -> %s); rerun with --force to proceed.",
				r.Tool, r.Installed, r.Target)
			return DecisionRefuse, msg, 1
		}
		return DecisionDowngrade, fmt.Sprintf("Downgrading %s: %s -> %s", r.Tool, r.Installed, r.Target), 0
	}
}

func sameVersion(r Request) (Decision, string, int) {
	if r.Force {
		return DecisionReinstall, fmt.Sprintf("Reinstalling %s %s...", r.Tool, r.Target), 0
	}
	return DecisionSkip, fmt.Sprintf("%s %s is already installed. Use --force to reinstall.", r.Tool, r.Target), 0
}

// DescribeDecision returns a human-readable dry-run status.
func DescribeDecision(d Decision) string {
	switch d {
	case DecisionInstall:
		return "Not installed"
	case DecisionSkip:
		return "Already installed (nothing to do)"
	case DecisionRefuse:
		return "Install refused (cross-major version change)"
	case DecisionReinstall:
		return "Force reinstall requested"
	case DecisionUpgrade:
		return "Upgrade available"
	case DecisionDowngrade:
		return "Downgrade requested"
	case DecisionReplace:
		return "Replacing install with non-comparable version"
	default:
		return string(d)
	}
}
