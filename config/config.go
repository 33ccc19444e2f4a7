// Package config resolves the effective settings of an installation run.
//
// Settings are layered the usual way: built-in defaults, then an optional TOML
// file, then environment variables prefixed with TALIB_SETUP_. The defaults alone
// reproduce the upstream install instructions for ta-lib 0.4.0 on debian.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"golang.org/x/mod/semver"
	"mvdan.cc/sh/v3/shell"

	"github.com/aexvir/provision/source"
)

const (
	// EnvPrefix is prepended to every environment variable override.
	EnvPrefix = "TALIB_SETUP"
	// DefaultFile is looked up in the working directory when no file is given.
	DefaultFile = "talib-setup.toml"
)

type Config struct {
	System  System  `mapstructure:"system" toml:"system"`
	Source  Source  `mapstructure:"source" toml:"source"`
	Build   Build   `mapstructure:"build" toml:"build"`
	Binding Binding `mapstructure:"binding" toml:"binding"`
	Verify  Verify  `mapstructure:"verify" toml:"verify"`
}

type System struct {
	PackageManager   string   `mapstructure:"package_manager" toml:"package_manager"`
	Packages         []string `mapstructure:"packages" toml:"packages"`
	PrivilegeCommand string   `mapstructure:"privilege_command" toml:"privilege_command"`
}

type Source struct {
	Name       string `mapstructure:"name" toml:"name"`
	Version    string `mapstructure:"version" toml:"version"`
	URL        string `mapstructure:"url" toml:"url"`
	Archive    string `mapstructure:"archive" toml:"archive"`
	Tree       string `mapstructure:"tree" toml:"tree"`
	SHA256     string `mapstructure:"sha256" toml:"sha256"`
	Timeout    string `mapstructure:"timeout" toml:"timeout"`
	ScratchDir string `mapstructure:"scratch_dir" toml:"scratch_dir"`
}

type Build struct {
	Prefix        string `mapstructure:"prefix" toml:"prefix"`
	ConfigureArgs string `mapstructure:"configure_args" toml:"configure_args"`
	Make          string `mapstructure:"make" toml:"make"`
}

type Binding struct {
	Installer string `mapstructure:"installer" toml:"installer"`
	Package   string `mapstructure:"package" toml:"package"`
}

type Verify struct {
	Python    string   `mapstructure:"python" toml:"python"`
	Artifacts []string `mapstructure:"artifacts" toml:"artifacts"`
}

// Default returns the settings matching the upstream install instructions.
func Default() Config {
	return Config{
		System: System{
			PackageManager:   "apt-get",
			Packages:         []string{"build-essential", "wget"},
			PrivilegeCommand: "sudo",
		},
		Source: Source{
			Name:       "ta-lib",
			Version:    "0.4.0",
			URL:        "http://prdownloads.sourceforge.net/ta-lib/ta-lib-{{.Version}}-src.tar.gz",
			Archive:    "ta-lib-{{.Version}}-src.tar.gz",
			Tree:       "ta-lib",
			Timeout:    "10m",
			ScratchDir: "/tmp",
		},
		Build: Build{
			Prefix: "/usr",
			Make:   "make",
		},
		Binding: Binding{
			Installer: "pip",
			Package:   "TA-Lib",
		},
		Verify: Verify{
			Python:    "python3",
			Artifacts: []string{"lib/libta_lib.so", "include/ta-lib/ta_libc.h"},
		},
	}
}

// Load resolves the configuration.
// If path is empty the default file is used when present in the working directory,
// otherwise only defaults and environment variables apply. An explicit path that
// doesn't exist is an error.
func Load(path string) (Config, string, error) {
	v := viper.New()

	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := ""
	switch {
	case path != "":
		if _, err := os.Stat(path); err != nil {
			return Config{}, "", fmt.Errorf("config file not found: %w", err)
		}
		resolved = path
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			resolved = DefaultFile
		}
	}

	if resolved != "" {
		v.SetConfigFile(resolved)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, "", fmt.Errorf("failed to read config file %s: %w", resolved, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}

	return cfg, resolved, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("system.package_manager", d.System.PackageManager)
	v.SetDefault("system.packages", d.System.Packages)
	v.SetDefault("system.privilege_command", d.System.PrivilegeCommand)

	v.SetDefault("source.name", d.Source.Name)
	v.SetDefault("source.version", d.Source.Version)
	v.SetDefault("source.url", d.Source.URL)
	v.SetDefault("source.archive", d.Source.Archive)
	v.SetDefault("source.tree", d.Source.Tree)
	v.SetDefault("source.sha256", d.Source.SHA256)
	v.SetDefault("source.timeout", d.Source.Timeout)
	v.SetDefault("source.scratch_dir", d.Source.ScratchDir)

	v.SetDefault("build.prefix", d.Build.Prefix)
	v.SetDefault("build.configure_args", d.Build.ConfigureArgs)
	v.SetDefault("build.make", d.Build.Make)

	v.SetDefault("binding.installer", d.Binding.Installer)
	v.SetDefault("binding.package", d.Binding.Package)

	v.SetDefault("verify.python", d.Verify.Python)
	v.SetDefault("verify.artifacts", d.Verify.Artifacts)
}

// Validate checks the settings can describe a run.
func (c Config) Validate() error {
	var errs []error

	if c.System.PackageManager == "" {
		errs = append(errs, errors.New("system.package_manager must be set"))
	}

	if c.Source.Version == "" {
		errs = append(errs, errors.New("source.version must be set"))
	} else if !semver.IsValid("v" + strings.TrimPrefix(c.Source.Version, "v")) {
		errs = append(errs, fmt.Errorf("source.version %q is not a valid semantic version", c.Source.Version))
	}

	if c.Source.URL == "" {
		errs = append(errs, errors.New("source.url must be set"))
	} else if _, err := c.Template().Resolve(c.Source.URL); err != nil {
		errs = append(errs, fmt.Errorf("source.url: %w", err))
	}

	if !filepath.IsAbs(c.Source.ScratchDir) {
		errs = append(errs, fmt.Errorf("source.scratch_dir %q must be an absolute path", c.Source.ScratchDir))
	}

	if _, err := c.DownloadTimeout(); err != nil {
		errs = append(errs, err)
	}

	if !filepath.IsAbs(c.Build.Prefix) {
		errs = append(errs, fmt.Errorf("build.prefix %q must be an absolute path", c.Build.Prefix))
	}

	if c.Build.Make == "" {
		errs = append(errs, errors.New("build.make must be set"))
	}

	if _, err := c.ConfigureArgs(); err != nil {
		errs = append(errs, err)
	}

	if c.Binding.Package == "" {
		errs = append(errs, errors.New("binding.package must be set"))
	}

	if args, err := c.BindingInstaller(); err != nil {
		errs = append(errs, err)
	} else if len(args) == 0 {
		errs = append(errs, errors.New("binding.installer must be set"))
	}

	if _, err := c.PrivilegeCommand(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Template returns the values available to the source url and archive templates.
func (c Config) Template() source.Template {
	return source.Template{
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
		Name:    c.Source.Name,
		Version: c.Source.Version,
	}
}

// DownloadTimeout parses source.timeout, zero means no timeout.
func (c Config) DownloadTimeout() (time.Duration, error) {
	if c.Source.Timeout == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(c.Source.Timeout)
	if err != nil {
		return 0, fmt.Errorf("source.timeout: %w", err)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("source.timeout %s can't be negative", timeout)
	}

	return timeout, nil
}

// ConfigureArgs splits the extra configure arguments the way a shell would.
func (c Config) ConfigureArgs() ([]string, error) {
	return split("build.configure_args", c.Build.ConfigureArgs)
}

// BindingInstaller splits the binding installer command, e.g. "python3 -m pip".
func (c Config) BindingInstaller() ([]string, error) {
	return split("binding.installer", c.Binding.Installer)
}

// PrivilegeCommand splits the command used to elevate privileges, e.g. "sudo -E".
// An empty result means commands run unwrapped.
func (c Config) PrivilegeCommand() ([]string, error) {
	return split("system.privilege_command", c.System.PrivilegeCommand)
}

// Marshal renders the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func split(key, value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	// no expansion, $VARS are kept literally
	fields, err := shell.Fields(value, func(name string) string { return "$" + name })
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse %q: %w", key, value, err)
	}

	return fields, nil
}
