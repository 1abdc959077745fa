// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// ------------------------------------------------------------
	// BUS MODE / SECTION CONSISTENCY
	// ------------------------------------------------------------

	switch cfg.Bus.Mode {
	case "tcp":
		if cfg.Bus.TCP == nil {
			return fmt.Errorf("config: bus mode is tcp but no tcp section is defined")
		}
	case "serial":
		if cfg.Bus.Serial == nil {
			return fmt.Errorf("config: bus mode is serial but no serial section is defined")
		}
	}

	// ------------------------------------------------------------
	// DEVICE / REGISTER UNIQUENESS
	// ------------------------------------------------------------

	deviceOwner := make(map[string]string) // device id -> group name

	for _, g := range cfg.Groups {
		regAddrs := make(map[uint16]string)
		regNames := make(map[string]uint16)

		for _, r := range g.Registers {
			if prev, exists := regAddrs[r.Address]; exists {
				return fmt.Errorf(
					"config: group %q: register address %d used by both %q and %q",
					g.Name, r.Address, prev, r.Name,
				)
			}
			if prev, exists := regNames[r.Name]; exists {
				return fmt.Errorf(
					"config: group %q: register name %q used at both address %d and %d",
					g.Name, r.Name, prev, r.Address,
				)
			}
			regAddrs[r.Address] = r.Name
			regNames[r.Name] = r.Address
		}

		for _, d := range g.Devices {
			if prev, exists := deviceOwner[d.ID]; exists {
				return fmt.Errorf(
					"config: device id %q declared in both group %q and %q",
					d.ID, prev, g.Name,
				)
			}
			deviceOwner[d.ID] = g.Name
		}
	}

	return nil
}
