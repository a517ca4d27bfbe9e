package archivable

import (
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is the prefix of every environment variable read by SettingsFromEnv.
const EnvPrefix = "ARCHIVE_"

// Settings control how archive artifacts are written.
type Settings struct {
	// DirMode is the permission used when creating save directories.
	DirMode os.FileMode `env:"DIR_MODE" envDefault:"0755"`

	// FileMode is the permission of the payload and configuration files.
	FileMode os.FileMode `env:"FILE_MODE" envDefault:"0644"`

	// ConfigIndent is the number of spaces used to indent the default JSON
	// configuration snapshot.
	ConfigIndent int `env:"CONFIG_INDENT" envDefault:"2"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		DirMode:      0o755,
		FileMode:     0o644,
		ConfigIndent: 2,
	}
}

// SettingsFromEnv reads Settings from ARCHIVE_* environment variables.
// File modes are octal (e.g. ARCHIVE_FILE_MODE=0600).
func SettingsFromEnv() (Settings, error) {
	var s Settings
	opts := env.Options{
		Prefix: EnvPrefix,
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(os.FileMode(0)): parseFileMode,
		},
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.ConfigIndent < 0 {
		return Settings{}, fmt.Errorf("parse env: %sCONFIG_INDENT must not be negative", EnvPrefix)
	}
	return s, nil
}

func parseFileMode(v string) (any, error) {
	m, err := strconv.ParseUint(v, 8, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid file mode %q: %w", v, err)
	}
	return os.FileMode(m), nil
}
