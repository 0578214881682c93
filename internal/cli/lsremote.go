package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/3leaps/relinstall/internal/config"
	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/version"
)

func (a *app) lsRemoteCmd() *cobra.Command {
	var tags bool
	cmd := &cobra.Command{
		Use:   "ls-remote host/owner/repo",
		Short: "List installable versions, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLsRemote(cmd, args, tags)
		},
	}
	cmd.Flags().BoolVar(&tags, "tags", false, "List repository tags instead of published releases")
	return cmd
}

func (a *app) runLsRemote(cmd *cobra.Command, args []string, tags bool) error {
	ref, constraint, err := config.ParseToolRef(args[0])
	if err != nil {
		return err
	}
	if !constraint.IsLatest() {
		return failure.New(failure.KindInvalidInput, "drop the @version suffix", "ls-remote takes a tool without a version")
	}

	opts := a.toolOptions(ref)
	var resolved []version.Resolved
	if tags {
		names, err := a.client.ListTags(cmd.Context(), ref, opts.APIURL)
		if err != nil {
			return err
		}
		resolved = version.List(version.PrefixFrom(opts.VersionPrefix), names)
	} else {
		resolved, err = a.planner.Versions(cmd.Context(), ref, opts)
		if err != nil {
			return err
		}
	}
	slices.Reverse(resolved)

	versions := make([]string, 0, len(resolved))
	for _, r := range resolved {
		versions = append(versions, r.Version)
	}
	if a.jsonOut {
		return a.printJSON(versions)
	}
	for _, v := range versions {
		fmt.Fprintln(a.stdout, v)
	}
	return nil
}
