// Package config resolves option defaults from the environment, dotenv files
// and config files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load builds a viper instance reading environment variables named
// PREFIX_DEST and, when file is set, a config file whose keys are option
// destinations. A dotenv file is loaded into the environment first; a
// missing dotenv file is not an error.
func Load(prefix, file, dotenv string) (*viper.Viper, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load dotenv %s: %w", dotenv, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if prefix != "" {
		v.SetEnvPrefix(prefix)
		v.AutomaticEnv()
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	return v, nil
}

// Lookup returns the raw option value configured for dest. List values are
// joined with "," so they expand the same way as on the command line.
func Lookup(v *viper.Viper, dest string) (string, bool) {
	if v == nil || !v.IsSet(dest) {
		return "", false
	}

	switch val := v.Get(dest).(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []string:
		return strings.Join(val, ","), true
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}

		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(val), true
	}
}
