package sources

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jonesrussell/cafecrawl/internal/logger"
)

// ErrNoSources is returned when the sources file declares no sources.
var ErrNoSources = errors.New("no sources found")

// Load reads source descriptors from a YAML file. The file shape is
//
//	sources:
//	  - name: ...
//	    base_url: ...
//
// Every descriptor is validated; a single invalid source fails the load,
// before any browser resource is acquired.
func Load(path string, log logger.Interface) ([]Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	raw := v.Get("sources")
	if raw == nil {
		return nil, ErrNoSources
	}

	var configs []Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "yaml",
		Result:  &configs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build sources decoder: %w", err)
	}
	if decodeErr := decoder.Decode(raw); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode sources file %s: %w", path, decodeErr)
	}

	if len(configs) == 0 {
		return nil, ErrNoSources
	}

	for i := range configs {
		if validateErr := configs[i].Validate(); validateErr != nil {
			return nil, fmt.Errorf("source %q: %w", configs[i].Name, validateErr)
		}
	}

	if log != nil {
		log.Info("Sources loaded",
			"path", path,
			"count", len(configs))
	}

	return configs, nil
}
