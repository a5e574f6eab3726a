package config

import (
	"strings"
)

// Environment identifies the runtime environment where borderless operates.
type Environment string

const (
	// EnvDev marks the development environment.
	EnvDev Environment = "dev"
	// EnvStaging marks the staging environment.
	EnvStaging Environment = "staging"
	// EnvProd marks the production environment.
	EnvProd Environment = "prod"
)

// EnvVar names the environment variable consulted for the config path.
const EnvVar = "BORDERLESS_CONFIG"

// DefaultPath is used when neither a flag nor EnvVar names a config file.
const DefaultPath = "config/borderless.yaml"

func normalizeChainIdentifier(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
