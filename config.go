package cookieferry

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-ini/ini"
)

// Config holds the settings a cookieferry.conf file can carry. Every field
// maps to a CLI flag; flags win when both are present.
type Config struct {
	Browsers           []Browser
	Profiles           map[Browser]string
	RequireSecretStore bool
	Timeout            time.Duration
	ContainerPath      string
}

// LoadConfig reads an INI config file. A missing file is not an error and
// yields a zero Config.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	f, err := ini.Load(path)
	if err != nil {
		return cfg, nil
	}

	main := f.Section("")
	if v := strings.TrimSpace(main.Key("browsers").String()); v != "" {
		for _, part := range strings.Split(v, ",") {
			name := Browser(strings.ToLower(strings.TrimSpace(part)))
			if name == "" {
				continue
			}
			if !knownBrowser(name) {
				return cfg, fmt.Errorf("cookieferry: unknown browser %q in %s", part, path)
			}
			cfg.Browsers = append(cfg.Browsers, name)
		}
	}
	if main.HasKey("require_secret_store") {
		cfg.RequireSecretStore = main.Key("require_secret_store").MustBool(false)
	}
	if main.HasKey("timeout_seconds") {
		cfg.Timeout = time.Duration(main.Key("timeout_seconds").MustInt(3)) * time.Second
	}
	cfg.ContainerPath = strings.TrimSpace(main.Key("container").String())

	profiles := f.Section("profiles")
	for _, key := range profiles.Keys() {
		b := Browser(strings.ToLower(strings.TrimSpace(key.Name())))
		if !knownBrowser(b) {
			return cfg, fmt.Errorf("cookieferry: unknown browser %q in [profiles] of %s", key.Name(), path)
		}
		if cfg.Profiles == nil {
			cfg.Profiles = make(map[Browser]string)
		}
		cfg.Profiles[b] = strings.TrimSpace(key.String())
	}
	return cfg, nil
}

// Apply overlays the config onto opts, filling only fields opts leaves unset.
func (c Config) Apply(opts Options) Options {
	if len(opts.Browsers) == 0 {
		opts.Browsers = c.Browsers
	}
	if opts.Profiles == nil && c.Profiles != nil {
		opts.Profiles = c.Profiles
	}
	if !opts.RequireSecretStore {
		opts.RequireSecretStore = c.RequireSecretStore
	}
	if opts.Timeout <= 0 {
		opts.Timeout = c.Timeout
	}
	return opts
}
