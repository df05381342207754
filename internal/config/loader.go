package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".prefixscan"

// EnvFile is the dotenv file loaded before the configuration is expanded.
const EnvFile = ".env"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// envRef matches ${NAME} references. Bare $NAME is left alone so values
// containing a dollar sign survive.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadEnv loads .env files from the given directories into the process
// environment. Variables that are already set are not overridden, and
// missing files are skipped.
func LoadEnv(dirs ...string) error {
	for _, dir := range dirs {
		path := filepath.Join(dir, EnvFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfigFile loads target profiles from a YAML file.
// It loads a .env file next to the configuration file first, then expands
// ${NAME} references in URLs, proxies, user agents and header values.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	if err := LoadEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Targets == nil {
		cf.Targets = make(map[string]Profile)
	}

	cf.Defaults = expandProfile(cf.Defaults)
	for name, p := range cf.Targets {
		cf.Targets[name] = expandProfile(p)
	}
	return &cf, nil
}

func expandProfile(p Profile) Profile {
	p.BaseURL = ExpandEnv(p.BaseURL)
	p.Proxy = ExpandEnv(p.Proxy)
	p.UserAgent = ExpandEnv(p.UserAgent)
	for k, v := range p.Headers {
		p.Headers[k] = ExpandEnv(v)
	}
	return p
}

// ExpandEnv replaces ${NAME} with the value of the environment variable NAME.
// Unset variables expand to the empty string.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .prefixscan in the current directory
// 3. Look for .prefixscan in the XDG config directory
// 4. Look for .prefixscan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	for _, dir := range configSearchDirs() {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// configSearchDirs lists the directories FindConfigFile searches, in order.
func configSearchDirs() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	dirs = append(dirs, XDGConfigDir())
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}
