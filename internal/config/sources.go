package config

import (
	"os"
	"strings"
)

// SourceFiles returns the files that contributed to cfg, for change
// detection. Defaults and environment overrides contribute none.
func SourceFiles(cfg *Config) []string {
	if cfg == nil {
		return nil
	}
	path := strings.TrimSpace(cfg.Source)
	if path == "" {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil
	}
	return []string{path}
}
