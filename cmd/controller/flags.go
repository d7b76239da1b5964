package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/lume-glove/controller/internal/config"
)

// flagsSet reports which flags were given on the command line.
func flagsSet() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig reads path (or starts from an empty config) and lets explicitly
// set flags override the file.
func loadConfig(path string, set map[string]bool) (*config.ControllerConfig, error) {
	cfg := config.EmptyControllerConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadControllerConfig(path); err != nil {
			return nil, err
		}
	}
	if err := applyFlagOverrides(cfg, set); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *config.ControllerConfig, set map[string]bool) error {
	if set["listen"] {
		v := *listen
		cfg.ListenAddress = &v
	}
	if set["port"] {
		v := *port
		cfg.SerialPort = &v
	}
	if set["tick"] {
		v := tick.String()
		cfg.TickInterval = &v
	}
	if set["flex-threshold"] {
		if *flexThreshold < 0 || *flexThreshold > math.MaxInt32 {
			return fmt.Errorf("-flex-threshold %d out of range [0, %d]", *flexThreshold, math.MaxInt32)
		}
		v := int32(*flexThreshold)
		cfg.FlexThreshold = &v
	}
	return nil
}
