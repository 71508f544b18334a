// Package config loads CLIFp's own ambient configuration - distinct
// from Flashpoint's install-level configuration, which is queried
// read-only through internal/install. Grounded on a conventional
// internal/config.go shape (cleanenv, env-default tags, getCachePath/
// getConfigPath derivation).
package config

import (
	"fmt"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	homedir "github.com/mitchellh/go-homedir"
)

// Config is CLIFp's own tunable behavior: independent of any one
// Flashpoint install, and safe to ship a sane default for.
type Config struct {
	LogLevel    string `yaml:"log_level" env:"CLIFP_LOG_LEVEL" env-default:"info"`
	LogDirPath   string `yaml:"log_dir" env:"CLIFP_LOG_DIR"`
	CacheDirPath  string `yaml:"cache_dir" env:"CLIFP_CACHE_DIR"`
	UpdateServer  string `yaml:"update_server" env:"CLIFP_UPDATE_SERVER" env-default:"https://api.github.com/repos/oblivioncth/CLIFp/releases/latest"`
	BiderGrace   int  `yaml:"bider_grace_seconds" env-default:"15"`
	BiderPoll   int  `yaml:"bider_poll_millis" env-default:"500"`
	DockerTimeout int  `yaml:"docker_start_timeout_seconds" env-default:"30"`
	HTTPIdleTimout int  `yaml:"http_idle_timeout_seconds" env-default:"30"`
	QMPTimeout   int  `yaml:"qmp_command_timeout_seconds" env-default:"5"`

	// RouterImage/DatabaseImage name the Docker images for the
	// Standalone-mode companion services Core spawns itself (see
	// internal/dockerwait.ServiceManager). Left unset, no companion
	// service is spawned - a Companion-mode run (the standard launcher
	// already running) never reads these either way.
	RouterImage  string `yaml:"router_image" env:"CLIFP_ROUTER_IMAGE"`
	DatabaseImage string `yaml:"database_image" env:"CLIFP_DATABASE_IMAGE"`

	// DataPacksBaseURL is joined with a data pack's recorded path to
	// build the URL TDownload fetches it from, per spec.md §4.3's
	// enqueueDataPackTasks.
	DataPacksBaseURL string `yaml:"data_packs_base_url" env:"CLIFP_DATA_PACKS_BASE_URL" env-default:"https://infinity.unstable.life"`

	// MountProxyEndpoint/MountRouterBaseURL/MountQMPAddr address the
	// locally-running daemon TMount's Policy talks to, selected by
	// internal/mount.SelectForDaemon according to which one
	// internal/install.Install detected at Open time.
	MountProxyEndpoint string `yaml:"mount_proxy_endpoint" env:"CLIFP_MOUNT_PROXY_ENDPOINT" env-default:"http://127.0.0.1:22500/mount"`
	MountRouterBaseURL string `yaml:"mount_router_base_url" env:"CLIFP_MOUNT_ROUTER_BASE_URL" env-default:"http://127.0.0.1:22501/mount"`
	MountQMPAddr    string `yaml:"mount_qmp_addr" env:"CLIFP_MOUNT_QMP_ADDR" env-default:"127.0.0.1:22600"`
}

// Load reads a configuration file into a Config (cleanenv picks the
// parser from the file extension; key names are given only by the yaml
// tags, so YAML is the format they apply to), falling back to
// the struct's env-default tags for anything unset, exactly like TPAConfig.LoadFromFile.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load CLIFp configuration: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated purely from env-default tags, used
// when no config file is present (first run).
func Default() *Config {
	cfg := &Config{}
	_ = cleanenv.ReadEnv(cfg)
	return cfg
}

// CacheDir returns the resolved update/log cache directory, preferring
// an explicit override over the derived per-user default, matching getCachePath.
func (c *Config) CacheDir() (string, error) {
	if c.CacheDirPath != "" {
		return c.CacheDirPath, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("derive user cache dir: %w", err)
	}
	return filepath.Join(home, ".clifp", "cache"), nil
}

// LogDir returns the resolved log directory, preferring an explicit
// override over the derived per-user default.
func (c *Config) LogDir() (string, error) {
	if c.LogDirPath != "" {
		return c.LogDirPath, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("derive user log dir: %w", err)
	}
	return filepath.Join(home, ".clifp", "log"), nil
}
