// Package config handles configuration loading and validation for scenariotool.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"scenariotool/internal/audit"
	"scenariotool/internal/watcher"
)

// DefaultConfigPath is the config file used when --config is not given.
const DefaultConfigPath = "scenariotool.json"

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidJSON     ConfigErrorType = "INVALID_JSON"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in configuration file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// ReplacementTables holds the data driving replacement-map construction.
// These tables encode institutional knowledge about legacy controller
// callsigns; they are configuration, not derivable from the reference
// document.
type ReplacementTables struct {
	// Overrides maps a legacy identifier directly to its display name.
	// Override entries always win over derived entries.
	Overrides map[string]string `json:"overrides"`

	// PrefixFacilities maps a legacy callsign prefix to the facility code
	// used when deriving <PREFIX>_<SECTOR>_CTR entries.
	PrefixFacilities map[string]string `json:"prefixFacilities"`

	// SectorAllowlists restricts derivation for a prefix to an explicit set
	// of sector tokens. Prefixes absent from this map derive an entry for
	// every reference position under their facility.
	SectorAllowlists map[string][]string `json:"sectorAllowlists"`
}

// DefaultReplacementTables returns the standard legacy-callsign tables.
// The allowlists for NY, BOS, and HCF are literal: only those sector tokens
// are known-valid legacy forms for those prefixes.
func DefaultReplacementTables() ReplacementTables {
	return ReplacementTables{
		Overrides: map[string]string{
			"NY_A1_CTR": "ZNY 26 Lancaster",
			"NY_A_CTR":  "ZNY 26 Lancaster",
			"NY_B_CTR":  "ZNY 56 Kennedy",
			"NY_B1_CTR": "ZNY 56 Kennedy",
			"NY_C_CTR":  "ZNY 55 Yardley",
			"NY_C1_CTR": "ZNY 55 Yardley",
			"NY_D_CTR":  "ZNY 72 Selinsgrove",
			"NY_D1_CTR": "ZNY 72 Selinsgrove",
			"NY_F_CTR":  "ZNY 86 Atlantic",
			"NY_F1_CTR": "ZNY 86 Atlantic",
			"BOS_E_CTR": "ZBW 46 Boston",
			// Legacy sector numbers mapped to the corrected ARTCC sectors
			// (56->35 for ZAU, 77->94 for ZKC).
			"CHI_56_CTR": "ZAU 35 BEARZ",
			"KC_77_CTR":  "ZKC 94 (94) FARGO SH",
		},
		PrefixFacilities: map[string]string{
			"ZDC": "ZDC",
			"CLE": "ZOB",
			"IND": "ZID",
			"LAX": "ZLA",
			"CHI": "ZAU",
			"ABQ": "ZAB",
			"FTW": "ZFW",
			"KC":  "ZKC",
			"MEM": "ZME",
			"MSP": "ZMP",
			"SLC": "ZLC",
			"BOS": "ZBW",
			"NY":  "ZNY",
			"OAK": "ZOA",
			"HCF": "ZHN",
		},
		SectorAllowlists: map[string][]string{
			"NY":  {"08"},
			"BOS": {"01", "02"},
			"HCF": {"02", "03", "04", "05"},
		},
	}
}

// Configuration holds all settings for scenariotool.
type Configuration struct {
	ScenariosDir  string               `json:"scenariosDir"`
	ReferencePath string               `json:"referencePath"`
	LintOutputDir string               `json:"lintOutputDir"`
	Tables        *ReplacementTables   `json:"replacementTables,omitempty"`
	Audit         *audit.AuditConfig   `json:"audit,omitempty"`
	Watch         *watcher.WatchConfig `json:"watch,omitempty"`
}

// DefaultConfiguration returns a Configuration with all defaults applied.
func DefaultConfiguration() *Configuration {
	cfg := &Configuration{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-valued fields with their defaults.
// An explicitly configured replacement-table set replaces the defaults
// wholesale; tables are not merged.
func (c *Configuration) ApplyDefaults() {
	if c.ScenariosDir == "" {
		c.ScenariosDir = "resources/scenarios"
	}
	if c.ReferencePath == "" {
		c.ReferencePath = "resources/output.json"
	}
	if c.LintOutputDir == "" {
		c.LintOutputDir = "lint-error-lists"
	}
	if c.Tables == nil {
		tables := DefaultReplacementTables()
		c.Tables = &tables
	}

	auditDefaults := audit.DefaultAuditConfig()
	if c.Audit == nil {
		c.Audit = &auditDefaults
	} else {
		if c.Audit.LogDirectory == "" {
			c.Audit.LogDirectory = auditDefaults.LogDirectory
		}
		if c.Audit.RotationSize == 0 {
			c.Audit.RotationSize = auditDefaults.RotationSize
		}
		// RetentionDays/RetentionRuns 0 means unlimited, so we don't override
		if c.Audit.MinRetentionDays == 0 {
			c.Audit.MinRetentionDays = auditDefaults.MinRetentionDays
		}
	}

	if c.Watch == nil {
		c.Watch = watcher.DefaultWatchConfig()
	} else {
		watchDefaults := watcher.DefaultWatchConfig()
		if c.Watch.DebounceMs == 0 {
			c.Watch.DebounceMs = watchDefaults.DebounceMs
		}
		if len(c.Watch.IgnorePatterns) == 0 {
			c.Watch.IgnorePatterns = watchDefaults.IgnorePatterns
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Configuration) Validate() error {
	if c.ScenariosDir == "" {
		return &ConfigError{
			Type:    ValidationError,
			Message: "scenariosDir cannot be empty",
		}
	}
	if c.ReferencePath == "" {
		return &ConfigError{
			Type:    ValidationError,
			Message: "referencePath cannot be empty",
		}
	}
	if c.LintOutputDir == "" {
		return &ConfigError{
			Type:    ValidationError,
			Message: "lintOutputDir cannot be empty",
		}
	}
	if c.Tables != nil {
		if err := c.Tables.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t *ReplacementTables) validate() error {
	for legacy, name := range t.Overrides {
		if legacy == "" || name == "" {
			return &ConfigError{
				Type:    ValidationError,
				Message: "replacementTables.overrides cannot contain empty keys or values",
			}
		}
	}
	for prefix, facility := range t.PrefixFacilities {
		if prefix == "" {
			return &ConfigError{
				Type:    ValidationError,
				Message: "replacementTables.prefixFacilities cannot contain an empty prefix",
			}
		}
		if !strings.HasPrefix(facility, "Z") {
			return &ConfigError{
				Type:    ValidationError,
				Message: fmt.Sprintf("replacementTables.prefixFacilities[%s]: facility code %q must start with Z", prefix, facility),
			}
		}
	}
	for prefix, sectors := range t.SectorAllowlists {
		if _, ok := t.PrefixFacilities[prefix]; !ok {
			return &ConfigError{
				Type:    ValidationError,
				Message: fmt.Sprintf("replacementTables.sectorAllowlists[%s]: prefix has no facility mapping", prefix),
			}
		}
		if len(sectors) == 0 {
			return &ConfigError{
				Type:    ValidationError,
				Message: fmt.Sprintf("replacementTables.sectorAllowlists[%s]: allowlist cannot be empty", prefix),
			}
		}
	}
	return nil
}

// Load reads and parses a configuration file from the given path.
// A missing file yields the default configuration rather than an error.
func Load(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfiguration(), nil
		}
		return nil, &ConfigError{
			Type:    FileNotFound,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	var config Configuration
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &ConfigError{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Save serializes and writes a configuration to the given path.
func Save(config *Configuration, filePath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return &ConfigError{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
		}
	}

	return nil
}
