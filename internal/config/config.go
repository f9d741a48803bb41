// Package config manages the ws repository registry: a small file mapping
// short names to repository roots.
//
// The file location is, in order of precedence:
//
//	$WS_CONFIG_PATH
//	$XDG_CONFIG_HOME/ws/config.yaml
//	~/.config/ws/config.yaml
//
// Registries written by earlier releases as config.toml in the same
// directory are still read and written in TOML when no config.yaml exists.
// The format is chosen by file extension.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/ws/internal/model"
)

const (
	// EnvPath overrides the registry location.
	EnvPath = "WS_CONFIG_PATH"

	fileName       = "config.yaml"
	legacyFileName = "config.toml"
)

var (
	// ErrRepoExists is returned when registering a name that is taken.
	ErrRepoExists = errors.New("repository already registered")

	// ErrRepoNotFound is returned for an unknown repository name.
	ErrRepoNotFound = errors.New("repository not registered")
)

// RepoEntry is one registered repository.
type RepoEntry struct {
	// Path is the repository root. A leading ~ is expanded on load.
	Path string `yaml:"path" toml:"path" json:"path"`

	// URL is the origin remote, when known.
	URL string `yaml:"url,omitempty" toml:"url,omitempty" json:"url,omitempty"`
}

// Config is the repository registry.
type Config struct {
	Repos map[string]RepoEntry `yaml:"repos" toml:"repos" json:"repos"`
}

// Path returns the registry file location.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return ExpandHome(p), nil
	}

	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", model.WrapCLIError(model.ExitConfigError,
				"cannot determine the config directory", err)
		}
		dir = filepath.Join(home, ".config")
	}
	dir = filepath.Join(dir, "ws")

	path := filepath.Join(dir, fileName)
	legacy := filepath.Join(dir, legacyFileName)
	if !fileExists(path) && fileExists(legacy) {
		return legacy, nil
	}
	return path, nil
}

// Load reads the registry at path. A missing file yields an empty registry.
func Load(path string) (*Config, error) {
	cfg := &Config{Repos: map[string]RepoEntry{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("cannot read %s", path), err)
	}

	if isTOML(path) {
		_, err = toml.Decode(string(data), cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("cannot parse %s", path), err)
	}

	if cfg.Repos == nil {
		cfg.Repos = map[string]RepoEntry{}
	}
	for name, entry := range cfg.Repos {
		entry.Path = ExpandHome(entry.Path)
		cfg.Repos[name] = entry
	}
	return cfg, nil
}

// Save writes the registry to path, creating parent directories. The file
// is replaced atomically.
func Save(path string, cfg *Config) error {
	data, err := encode(path, cfg)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "cannot encode registry", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("cannot create %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "cannot write registry", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return model.WrapCLIError(model.ExitConfigError, "cannot write registry", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return model.WrapCLIError(model.ExitConfigError, "cannot write registry", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return model.WrapCLIError(model.ExitConfigError, "cannot write registry", err)
	}
	return nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	if !isTOML(path) {
		return yaml.Marshal(cfg)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Names returns the registered names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Repos))
	for name := range c.Repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add registers entry under name.
func (c *Config) Add(name string, entry RepoEntry) error {
	if _, ok := c.Repos[name]; ok {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("cannot add %q", name), ErrRepoExists)
	}
	if c.Repos == nil {
		c.Repos = map[string]RepoEntry{}
	}
	c.Repos[name] = entry
	return nil
}

// Remove unregisters name.
func (c *Config) Remove(name string) error {
	if _, ok := c.Repos[name]; !ok {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("cannot remove %q", name), ErrRepoNotFound)
	}
	delete(c.Repos, name)
	return nil
}

// NameFor returns the name under which root is registered. Registered
// paths are canonicalized before comparison; root must already be canonical.
func (c *Config) NameFor(root string) (string, bool) {
	for _, name := range c.Names() {
		p, err := filepath.EvalSymlinks(c.Repos[name].Path)
		if err == nil && p == root {
			return name, true
		}
	}
	return "", false
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// AbbreviateHome shortens a path under the home directory to "~/...".
func AbbreviateHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if rel, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~/" + rel
	}
	return path
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
