package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/3leaps/relinstall/internal/planner"
)

// planView is the printable form of an InstallationPlan.
type planView struct {
	Tool            string `json:"tool"`
	Version         string `json:"version"`
	Tag             string `json:"tag"`
	Platform        string `json:"platform"`
	Asset           string `json:"asset"`
	URL             string `json:"url"`
	Size            int64  `json:"size"`
	SHA256          string `json:"sha256"`
	Checksum        string `json:"checksum,omitempty"`
	SignedBy        string `json:"signed_by,omitempty"`
	Archive         bool   `json:"archive"`
	StripComponents int    `json:"strip_components"`
	BinDir          string `json:"bin_dir"`
	Rename          string `json:"rename,omitempty"`
}

func (a *app) viewOf(p *planner.InstallationPlan) planView {
	r := p.Receipt()
	return planView{
		Tool:            p.Tool.String(),
		Version:         p.Version.Version,
		Tag:             p.Version.Tag,
		Platform:        a.profile.String(),
		Asset:           p.Asset.Name,
		URL:             p.Asset.BrowserDownloadURL,
		Size:            r.Size(),
		SHA256:          r.SHA256(),
		Checksum:        r.Checked(),
		SignedBy:        r.SignedBy(),
		Archive:         p.Archive,
		StripComponents: p.StripComponents,
		BinDir:          p.BinDir,
		Rename:          p.Rename,
	}
}

func (a *app) planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan [host/owner/repo[@version]...]",
		Short: "Resolve, download and verify tools without installing them",
		Long: "Plan resolves the version, selects and verifies the asset, and reports the layout that\n" +
			"install would use. Without arguments every tool in the config file is planned.",
		RunE: a.runPlan,
	}
}

func (a *app) runPlan(cmd *cobra.Command, args []string) error {
	reqs, err := a.requests(args)
	if err != nil {
		return err
	}
	plans, err := a.planner.PlanAll(cmd.Context(), reqs)
	defer cleanup(plans)
	if err != nil {
		return err
	}

	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, a.viewOf(p))
	}
	if a.jsonOut {
		return a.printJSON(views)
	}
	for _, v := range views {
		fmt.Fprintf(a.stdout, "%s %s (tag %s) for %s\n", v.Tool, v.Version, v.Tag, v.Platform)
		fmt.Fprintf(a.stdout, "  asset:  %s (%d bytes)\n", v.Asset, v.Size)
		fmt.Fprintf(a.stdout, "  sha256: %s\n", v.SHA256)
		if v.Checksum != "" {
			fmt.Fprintf(a.stdout, "  checksum verified: %s\n", v.Checksum)
		}
		if v.SignedBy != "" {
			fmt.Fprintf(a.stdout, "  minisign key: %s\n", v.SignedBy)
		}
		if v.Archive {
			fmt.Fprintf(a.stdout, "  strip_components: %d\n  bin_dir: %s\n", v.StripComponents, v.BinDir)
		} else {
			fmt.Fprintf(a.stdout, "  binary: %s\n", v.Rename)
		}
	}
	return nil
}

// cleanup removes the work dirs of plans that were not placed.
func cleanup(plans []*planner.InstallationPlan) {
	for _, p := range plans {
		if p != nil && p.Dir != "" {
			_ = os.RemoveAll(p.Dir)
		}
	}
}
