package planner

import (
	"context"
	"io/fs"

	"golang.org/x/sync/errgroup"

	"github.com/3leaps/relinstall/internal/model"
	"github.com/3leaps/relinstall/internal/verify"
	"github.com/3leaps/relinstall/internal/version"
)

// InstallationPlan is everything placement needs to install one tool. Plans
// built outside this package carry no receipt and report Verified false.
type InstallationPlan struct {
	Tool    model.ToolRef
	Version version.Resolved
	Asset   model.Asset
	// Archive is false for a single downloaded file.
	Archive         bool
	StripComponents int
	// BinDir is relative to the stripped root, slash separated.
	BinDir string
	// Rename is the final file name of a single-file install.
	Rename string
	// Dir holds the extracted asset; Tree reads it.
	Dir  string
	Tree fs.FS

	receipt verify.Receipt
}

// Verified reports whether the plan's bytes passed verification.
func (p *InstallationPlan) Verified() bool {
	return p != nil && p.receipt.Valid()
}

// Receipt returns the verification receipt of the plan's bytes.
func (p *InstallationPlan) Receipt() verify.Receipt {
	return p.receipt
}

// PlanAll plans independent tools concurrently. Each plan still runs its
// stages in order. The first failure cancels the rest; plans that already
// finished are returned alongside the error so callers can clean their Dir.
func (p *Planner) PlanAll(ctx context.Context, reqs []Request) ([]*InstallationPlan, error) {
	plans := make([]*InstallationPlan, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, req := range reqs {
		g.Go(func() error {
			plan, err := p.Plan(ctx, req)
			if err != nil {
				return err
			}
			plans[i] = plan
			return nil
		})
	}
	err := g.Wait()
	return plans, err
}
