// Package placeholder expands the {name}, {version}, {os}, {arch} and {ext}
// placeholders accepted by asset_pattern and bin_path. Unknown placeholders are
// left in place verbatim.
package placeholder

import "strings"

type Context struct {
	Name    string
	Version string
	OS      string
	Arch    string
	Ext     string
}

func Expand(tpl string, ctx Context) string {
	if !strings.Contains(tpl, "{") {
		return tpl
	}
	return strings.NewReplacer(
		"{name}", ctx.Name,
		"{version}", ctx.Version,
		"{os}", ctx.OS,
		"{arch}", ctx.Arch,
		"{ext}", ctx.Ext,
	).Replace(tpl)
}
