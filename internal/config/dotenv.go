package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvFiles are read in order by LoadDotEnv. Earlier files win.
var DotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv copies variables from the given files (DotEnvFiles when none are
// passed) into the environment without overriding variables already set.
// Missing files are skipped. WORKOUTS_DOTENV=off disables it. It returns the
// files that were loaded.
func LoadDotEnv(paths ...string) ([]string, error) {
	if dotEnvDisabled() {
		return nil, nil
	}
	if len(paths) == 0 {
		paths = DotEnvFiles
	}

	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, err
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

func dotEnvDisabled() bool {
	switch strings.ToLower(strings.TrimSpace(getEnv("WORKOUTS_DOTENV", ""))) {
	case "0", "false", "off", "no":
		return true
	default:
		return false
	}
}
