package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/3leaps/relinstall/internal/failure"
)

// Version is reported by the version command and in the User-Agent. Release
// builds set it through -ldflags.
var Version = "dev"

// Run executes the command line and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if hint := failure.HintOf(err); hint != "" {
			fmt.Fprintf(stderr, "hint: %s\n", hint)
		}
		return 1
	}
	return 0
}
