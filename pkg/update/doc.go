// Package update decides whether installing a tool version into a destination
// that may already hold an install should proceed.
//
// It does not download, verify or place anything. It compares the version
// recorded by a previous install with the resolved target and returns a
// decision plus a message for the user.
//
// Version model
//   - Versions are semver-like, "vMAJOR.MINOR[.PATCH]" with optional
//     prerelease/build metadata; the leading "v" is optional.
//   - Prerelease precedence follows SemVer: "0.2.5-rc1" < "0.2.5".
//   - Versions that are not semver (date tags, "dev") are not compared; an
//     identical string still counts as the same version.
//   - Moving across a major version needs an explicit version or force.
package update
