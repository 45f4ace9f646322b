package config

import "errors"

// ErrConfigMissing is the taxonomy member for a required config value
// absent at startup (spec §7): policy is fail fast with non-zero exit.
var ErrConfigMissing = errors.New("config: required value missing")
