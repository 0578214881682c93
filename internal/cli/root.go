// Package cli implements the relinstall command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/3leaps/relinstall/internal/config"
	"github.com/3leaps/relinstall/internal/extract"
	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/forge"
	"github.com/3leaps/relinstall/internal/model"
	"github.com/3leaps/relinstall/internal/planner"
	"github.com/3leaps/relinstall/internal/platform"
	"github.com/3leaps/relinstall/internal/version"
)

type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	apiURL     string
	installDir string
	platform   string
	logLevel   string
	jsonOut    bool

	env      config.Env
	file     *config.File
	lock     *config.LockFile
	lockPath string
	profile  platform.Profile
	logger   *slog.Logger
	client   *forge.Client
	planner  *planner.Planner
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "relinstall",
		Short:         "Resolve, verify and install pre-built release binaries from a forge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Tool file (default $RELINSTALL_CONFIG or ./relinstall.toml)")
	cmd.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Override the forge API root for every tool")
	cmd.PersistentFlags().StringVar(&a.installDir, "install-dir", "", "Root directory for installs")
	cmd.PersistentFlags().StringVar(&a.platform, "platform", "", "Target platform such as linux-x64-musl (default: this machine)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(a.planCmd())
	cmd.AddCommand(a.installCmd())
	cmd.AddCommand(a.lsRemoteCmd())
	cmd.AddCommand(a.versionCmd())

	return cmd
}

func (a *app) setup() error {
	a.env = config.LoadEnv()
	if a.configPath != "" {
		a.env.ConfigPath = a.configPath
	}
	if a.logLevel != "" {
		a.env.LogLevel = a.logLevel
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.env.LogLevel)); err != nil {
		return failure.New(failure.KindInvalidInput, "use debug, info, warn or error", "invalid log level %q", a.env.LogLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	file, err := a.loadFile()
	if err != nil {
		return err
	}
	a.file = file
	a.env = a.env.Merge(file.Settings)
	if a.apiURL != "" {
		a.env.APIURL = a.apiURL
	}
	if a.installDir != "" {
		a.env.InstallDir = a.installDir
	}

	a.lockPath = config.LockPath(a.env.ConfigPath)
	if a.lock, err = config.LoadLock(a.lockPath); err != nil {
		return err
	}

	a.profile = platform.Detect()
	if a.platform != "" {
		p, ok := platform.Parse(a.platform)
		if !ok {
			return failure.New(failure.KindInvalidInput, "use {os}-{arch}[-{libc}], e.g. linux-x64-gnu or macos-arm64",
				"invalid platform %q", a.platform)
		}
		a.profile = p
	}

	client, err := forge.New(forge.Options{
		Token:     a.env.Token,
		UserAgent: forge.UserAgent(Version),
		APIURL:    a.env.APIURL,
		AllPages:  a.env.ListAllVersions,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	a.client = client
	a.planner = &planner.Planner{
		Source:    client,
		Fetcher:   client,
		Extractor: extract.Extractor{},
		Locks:     a.lock,
		Logger:    a.logger,
	}
	a.logger.Debug("configured", "config", a.env.ConfigPath, "platform", a.profile.String(), "install_dir", a.env.InstallDir)
	return nil
}

// loadFile reads the tool file. The default file is optional; a file named
// explicitly must exist.
func (a *app) loadFile() (*config.File, error) {
	f, err := config.Load(a.env.ConfigPath)
	if err == nil {
		return f, nil
	}
	if a.env.ConfigPath == config.DefaultFile {
		if _, statErr := os.Stat(config.DefaultFile); errors.Is(statErr, fs.ErrNotExist) {
			return &config.File{Tools: map[string]config.Tool{}}, nil
		}
	}
	return nil, err
}

// requests turns tool arguments into plan requests. Without arguments every
// configured tool is used.
func (a *app) requests(args []string) ([]planner.Request, error) {
	if len(args) == 0 {
		args = a.file.Refs()
		if len(args) == 0 {
			return nil, failure.New(failure.KindInvalidInput, "pass host/owner/repo[@version] or add [tools] entries to the config",
				"no tools given")
		}
	}

	reqs := make([]planner.Request, 0, len(args))
	for _, arg := range args {
		ref, constraint, err := config.ParseToolRef(arg)
		if err != nil {
			return nil, err
		}
		tool, _ := a.file.Tool(ref)
		if !strings.Contains(arg, "@") && tool.Version != "" {
			constraint = version.Exact(tool.Version)
		}
		reqs = append(reqs, planner.Request{
			Tool:       ref,
			Constraint: constraint,
			Options:    tool.ToolOptions,
			Platform:   a.profile,
		})
	}
	return reqs, nil
}

func (a *app) toolOptions(ref model.ToolRef) model.ToolOptions {
	tool, _ := a.file.Tool(ref)
	return tool.ToolOptions
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(a.stdout, string(data))
	return nil
}
