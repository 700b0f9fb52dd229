package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override file settings.
const EnvPrefix = "TASKBOARD_"

const defaultConfigDir = "configs"

// Option configures Load.
type Option func(*loader)

// WithConfigDir sets the directory holding base.yaml and the profile files.
// Defaults to "configs" relative to the working directory.
func WithConfigDir(dir string) Option {
	return func(l *loader) { l.dir = dir }
}

// WithEnvPrefix replaces EnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) { l.envPrefix = prefix }
}

type loader struct {
	dir       string
	envPrefix string
	k         *koanf.Koanf
	sources   []string
}

// Load builds the configuration for profile from these layers, later ones
// winning:
//
//  1. built-in defaults
//  2. {dir}/base.yaml
//  3. {dir}/{profile}.yaml
//  4. TASKBOARD_* environment variables
//
// Environment names are matched against the keys known after the file
// layers, so underscores inside a key survive:
//
//	TASKBOARD_SERVER_READ_TIMEOUT                -> server.read_timeout
//	TASKBOARD_STORE_SNAPSHOT_PATH                -> store.snapshot_path
//	TASKBOARD_NOTIFIER_CLIENT_RETRY_MAX_ATTEMPTS -> notifier.client.retry.max_attempts
//
// The result is validated before it is returned.
func Load(profile string, opts ...Option) (*Config, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	l := &loader{dir: defaultConfigDir, envPrefix: EnvPrefix, k: koanf.New(".")}
	for _, opt := range opts {
		opt(l)
	}

	steps := []func() error{
		l.loadDefaults,
		func() error { return l.loadFile("base.yaml") },
		func() error { return l.loadFile(profile + ".yaml") },
		l.loadEnv,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	cfg.Sources = l.sources
	return &cfg, nil
}

func (l *loader) loadDefaults() error {
	for key, value := range defaults() {
		if err := l.k.Set(key, value); err != nil {
			return fmt.Errorf("setting default %s: %w", key, err)
		}
	}
	return nil
}

func (l *loader) loadFile(name string) error {
	path := filepath.Join(l.dir, name)
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	l.sources = append(l.sources, path)
	return nil
}

func (l *loader) loadEnv() error {
	known := envKeys(l.k.Keys())
	var used bool

	err := l.k.Load(env.Provider(".", env.Opt{
		Prefix: l.envPrefix,
		TransformFunc: func(name, value string) (string, any) {
			used = true
			name = strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
			if key, ok := known[name]; ok {
				return key, value
			}
			return strings.ReplaceAll(name, "_", "."), value
		},
	}), nil)
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}
	if used {
		l.sources = append(l.sources, "env:"+l.envPrefix+"*")
	}
	return nil
}

// envKeys maps each key's environment form (dots as underscores) back to
// the key.
func envKeys(keys []string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, key := range keys {
		m[strings.ReplaceAll(key, ".", "_")] = key
	}
	return m
}

func validateProfile(profile string) error {
	switch {
	case strings.TrimSpace(profile) == "":
		return errors.New("profile must not be empty")
	case strings.ContainsAny(profile, `/\`):
		return fmt.Errorf("profile must not contain path separators, got %q", profile)
	case strings.Contains(profile, ".."):
		return fmt.Errorf("profile must not contain path traversal, got %q", profile)
	}
	return nil
}
