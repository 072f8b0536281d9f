package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/papercomputeco/sift/pkg/dotdir"
)

// envPrefix namespaces environment overrides: api.listen is read from
// SIFT_API_LISTEN.
const envPrefix = "SIFT"

// InitViper returns a viper instance resolving every config key with the
// precedence bound flag > SIFT_ environment > config.toml > default. Flags
// join the chain through BindRegisteredFlags.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if target != "" {
		v.AddConfigPath(target)
	}

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers NewDefaultConfig under every dotted key, read
// through the same getters "sift config get" uses.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for _, key := range keyOrder {
		v.SetDefault(key, configKeys[key].get(d))
	}
}

// defaults is a viper holding only the defaults. Flag registration reads
// flag defaults from it.
var defaults = sync.OnceValue(func() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
})
