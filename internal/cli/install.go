package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/place"
	"github.com/3leaps/relinstall/internal/planner"
	"github.com/3leaps/relinstall/pkg/update"
)

type installOptions struct {
	dest   string
	force  bool
	dryRun bool
}

// installResult is reported per tool.
type installResult struct {
	Tool     string          `json:"tool"`
	Version  string          `json:"version"`
	Decision update.Decision `json:"decision"`
	Message  string          `json:"message"`
	Dest     string          `json:"dest,omitempty"`
	Binaries []string        `json:"binaries,omitempty"`
	Plan     *planView       `json:"plan,omitempty"`
}

type pending struct {
	req    planner.Request
	dest   string
	result *installResult
}

func (a *app) installCmd() *cobra.Command {
	opts := &installOptions{}
	cmd := &cobra.Command{
		Use:   "install [host/owner/repo[@version]...]",
		Short: "Install tools into the install directory",
		Long: "Install resolves and verifies each tool, then places it under\n" +
			"<install-dir>/<host>/<owner>/<repo>/<version> or --dest. Without arguments every tool in\n" +
			"the config file is installed. Installed assets are pinned in relinstall.lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInstall(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.dest, "dest", "", "Install into this directory instead of the versioned install path")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Reinstall the same version or cross a major version")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report the install decision without downloading")
	return cmd
}

func (a *app) runInstall(cmd *cobra.Command, args []string, opts *installOptions) error {
	reqs, err := a.requests(args)
	if err != nil {
		return err
	}
	if opts.dest != "" && len(reqs) > 1 {
		return failure.New(failure.KindInvalidInput, "install one tool at a time with --dest", "--dest accepts a single tool")
	}

	ctx := cmd.Context()
	results := make([]*installResult, 0, len(reqs))
	var todo []pending
	for _, req := range reqs {
		resolved, err := a.planner.Resolve(ctx, req)
		if err != nil {
			return err
		}
		dest := opts.dest
		if dest == "" {
			dest = a.env.InstallPath(req.Tool, resolved.Version)
		}
		marker, _, err := place.ReadMarker(dest)
		if err != nil {
			return err
		}
		decision, msg, code := update.Decide(update.Request{
			Tool:      req.Tool.String(),
			Installed: marker.Version,
			Target:    resolved.Version,
			Explicit:  !req.Constraint.IsLatest(),
			Force:     opts.force,
		})
		res := &installResult{Tool: req.Tool.String(), Version: resolved.Version, Decision: decision, Message: msg, Dest: dest}
		results = append(results, res)
		if code != 0 {
			return failure.New(failure.KindInvalidInput, "pass an explicit version or --force", "%s", msg)
		}
		if decision == update.DecisionSkip {
			continue
		}
		if opts.dryRun {
			res.Message = update.DescribeDecision(decision) + ": " + msg
			continue
		}
		todo = append(todo, pending{req: req, dest: dest, result: res})
	}

	if len(todo) > 0 {
		planReqs := make([]planner.Request, len(todo))
		for i, p := range todo {
			planReqs[i] = p.req
		}
		plans, err := a.planner.PlanAll(ctx, planReqs)
		defer cleanup(plans)
		if err != nil {
			return err
		}
		for i, plan := range plans {
			if err := a.placePlan(plan, todo[i]); err != nil {
				return err
			}
		}
		if err := a.saveLock(); err != nil {
			return err
		}
	}

	if a.jsonOut {
		return a.printJSON(results)
	}
	for _, r := range results {
		fmt.Fprintln(a.stdout, r.Message)
		if r.Plan != nil {
			fmt.Fprintf(a.stdout, "Installed %s %s to %s\n", r.Tool, r.Version, r.Dest)
		}
	}
	return nil
}

func (a *app) placePlan(plan *planner.InstallationPlan, p pending) error {
	res, err := place.Install(plan, p.dest)
	if err != nil {
		return fmt.Errorf("install %s: %w", plan.Tool, err)
	}
	if res.NoExec() {
		a.logger.Warn("install directory is on a noexec mount; binaries will not run from it",
			"tool", plan.Tool.String(), "mount", res.Mount.Point, "fstype", res.Mount.FSType)
	}
	if len(res.Binaries) == 0 {
		a.logger.Warn("no files found in the bin directory", "tool", plan.Tool.String(), "bin_dir", res.BinDir)
	}
	a.lock.Pin(plan.Tool, plan.Version.Version, a.profile.Key(), plan.Asset, "sha256:"+plan.Receipt().SHA256())

	view := a.viewOf(plan)
	p.result.Binaries = res.Binaries
	p.result.Plan = &view
	return nil
}

// saveLock writes the lockfile when a tool file is in use.
func (a *app) saveLock() error {
	if _, err := os.Stat(a.env.ConfigPath); err != nil {
		return nil
	}
	return a.lock.Save(a.lockPath)
}
