package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/3leaps/relinstall/internal/platform"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the relinstall version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if a.jsonOut {
				return a.printJSON(map[string]string{
					"version":  Version,
					"go":       runtime.Version(),
					"platform": platform.Detect().String(),
				})
			}
			fmt.Fprintln(a.stdout, "relinstall", Version)
			return nil
		},
	}
}
