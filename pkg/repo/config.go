package repo

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-ini/ini"

	"github.com/odvcencio/hashrarity/pkg/object"
)

// Config holds the repository settings that affect how objects are named.
type Config struct {
	FormatVersion int
	ObjectFormat  string
	Bare          bool
}

// ReadConfig reads the [core] and [extensions] sections of a git config
// file. A missing file yields the defaults of a version 0 SHA-1 repository.
func ReadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		AllowBooleanKeys:        true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	core := file.Section("core")
	cfg.FormatVersion = core.Key("repositoryformatversion").MustInt(0)
	cfg.Bare = core.Key("bare").MustBool(false)
	if file.HasSection("extensions") {
		cfg.ObjectFormat = file.Section("extensions").Key("objectformat").String()
	}
	return cfg, nil
}

// HashAlgo returns the object name algorithm. extensions.* keys are only
// honored from repository format version 1, as in Git.
func (c *Config) HashAlgo() (object.HashAlgo, error) {
	if c.ObjectFormat == "" || c.FormatVersion < 1 {
		return object.SHA1, nil
	}
	algo, err := object.ParseHashAlgo(c.ObjectFormat)
	if err != nil {
		return 0, fmt.Errorf("extensions.objectformat: %w", err)
	}
	return algo, nil
}
