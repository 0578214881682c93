// Package config loads relinstall settings from the environment and the TOML
// tool file, and reads and writes the lockfile.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/model"
)

// DefaultFile is the tool file read when neither --config nor
// RELINSTALL_CONFIG names one.
const DefaultFile = "relinstall.toml"

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "relinstall.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("decode config schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add config schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// File is the decoded tool file.
type File struct {
	Settings Settings        `toml:"settings"`
	Tools    map[string]Tool `toml:"tools"`
}

type Settings struct {
	APIURL          string `toml:"api_url,omitempty"`
	InstallDir      string `toml:"install_dir,omitempty"`
	ListAllVersions bool   `toml:"list_all_versions,omitempty"`
}

// Tool is one [tools."host/owner/repo"] table.
type Tool struct {
	Version string `toml:"version,omitempty"`
	model.ToolOptions
}

// Load reads and validates the tool file at path.
func Load(path string) (*File, error) {
	// #nosec G304 -- config path is user-provided
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.New(failure.KindInvalidInput, "create it or pass --config",
				"config file %s not found", path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates data against the embedded schema and decodes it.
func Parse(data []byte) (*File, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, failure.Wrap(fmt.Errorf("parse toml: %w", err), failure.KindInvalidInput, "")
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, failure.Wrap(fmt.Errorf("decode config: %w", err), failure.KindInvalidInput, "")
	}
	if f.Tools == nil {
		f.Tools = map[string]Tool{}
	}
	return &f, nil
}

func validate(raw map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	// Round-trip through JSON so TOML-native values match the schema's types.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode config for validation: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("decode config for validation: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return failure.Wrap(fmt.Errorf("invalid config: %w", err), failure.KindInvalidInput,
			"see the tool option reference for allowed keys and value formats")
	}
	return nil
}

// Tool returns the options configured for ref.
func (f *File) Tool(ref model.ToolRef) (Tool, bool) {
	if f == nil {
		return Tool{}, false
	}
	t, ok := f.Tools[ref.String()]
	return t, ok
}

// Refs lists configured tools in sorted order.
func (f *File) Refs() []string {
	if f == nil {
		return nil
	}
	refs := make([]string, 0, len(f.Tools))
	for ref := range f.Tools {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Env holds settings read from the process environment.
type Env struct {
	APIURL          string
	Token           string
	LogLevel        string
	ConfigPath      string
	InstallDir      string
	ListAllVersions bool
}

// LoadEnv reads .env from the working directory when present, then the
// RELINSTALL_* variables. Variables already set in the environment win over
// .env entries.
func LoadEnv() Env {
	_ = godotenv.Load()

	return Env{
		APIURL:          strings.TrimSpace(os.Getenv("RELINSTALL_API_URL")),
		Token:           firstNonEmpty(os.Getenv("RELINSTALL_TOKEN"), os.Getenv("FORGEJO_TOKEN"), os.Getenv("GITHUB_TOKEN")),
		LogLevel:        firstNonEmpty(os.Getenv("RELINSTALL_LOG_LEVEL"), "info"),
		ConfigPath:      firstNonEmpty(os.Getenv("RELINSTALL_CONFIG"), DefaultFile),
		InstallDir:      strings.TrimSpace(os.Getenv("RELINSTALL_INSTALL_DIR")),
		ListAllVersions: parseBool(os.Getenv("RELINSTALL_LIST_ALL_VERSIONS")),
	}
}

// Merge applies file settings that the environment left unset, then the
// built-in defaults.
func (e Env) Merge(s Settings) Env {
	if e.APIURL == "" {
		e.APIURL = s.APIURL
	}
	if e.InstallDir == "" {
		e.InstallDir = expandHome(s.InstallDir)
	}
	if e.InstallDir == "" {
		e.InstallDir = defaultInstallDir()
	}
	e.ListAllVersions = e.ListAllVersions || s.ListAllVersions
	return e
}

// InstallPath is the directory a tool version is installed into.
func (e Env) InstallPath(ref model.ToolRef, version string) string {
	return filepath.Join(e.InstallDir, ref.Host, ref.Owner, ref.Repo, version)
}

func defaultInstallDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "relinstall", "installs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".relinstall", "installs")
	}
	return filepath.Join(home, ".local", "share", "relinstall", "installs")
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
