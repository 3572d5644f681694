package rules

import (
	"fmt"

	"github.com/spf13/viper"
)

type file struct {
	Rules []Rule `mapstructure:"rules"`
}

// Load reads rules from a YAML (or any viper supported) file.
func Load(path string) ([]Rule, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading rules file %q: %w", path, err)
	}

	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("decoding rules file %q: %w", path, err)
	}
	return f.Rules, nil
}
