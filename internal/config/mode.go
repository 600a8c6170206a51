package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/vango-dev/signalshell/internal/errors"
)

// EnvMode names the variable consulted when no --mode flag is given.
const EnvMode = "SIGNALSHELL_MODE"

// Mode is the build/serve mode.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
	Preview     Mode = "preview"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case Development, Production, Preview:
		return true
	}
	return false
}

// ParseMode parses a mode name. "dev" and "prod" are accepted as short
// forms.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "dev":
		return Development, nil
	case "prod":
		return Production, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", errors.New("E123").
			WithDetailf("unknown mode %q", s).
			WithSuggestion("Use --mode development, --mode production or --mode preview")
	}
	return m, nil
}

// ResolveMode picks the mode from an explicit flag value, then the
// SIGNALSHELL_MODE variable, then fallback.
func ResolveMode(flag string, fallback Mode) (Mode, error) {
	if flag != "" {
		return ParseMode(flag)
	}
	if env := os.Getenv(EnvMode); env != "" {
		return ParseMode(env)
	}
	return fallback, nil
}

// EnvFiles returns the env files considered for mode, highest priority
// first.
func EnvFiles(mode Mode) []string {
	return []string{
		".env." + string(mode) + ".local",
		".env.local",
		".env." + string(mode),
		".env",
	}
}

// LoadEnv loads the mode's env files from dir into the process
// environment. Variables already set are never overwritten, so real
// environment variables beat every file. Missing files are skipped.
func LoadEnv(dir string, mode Mode) ([]string, error) {
	var loaded []string
	for _, name := range EnvFiles(mode) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, errors.New("E125").
				WithLocation(path, 0, 0).
				Wrap(err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}
