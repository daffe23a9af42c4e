// Package lint classifies simulator lint output lines into per-category
// buckets using an ordered rule list.
package lint

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarkerPrefix is the coarse filter applied before classification: lines
// not starting with it are silently dropped.
const MarkerPrefix = "TRACON "

// FallbackCategory receives every marker line no rule matched.
const FallbackCategory = "other_errors.txt"

// Rule assigns a category to lines containing every listed substring.
// Rules are evaluated in order; the first match wins.
type Rule struct {
	Category string   `yaml:"category"`
	Contains []string `yaml:"contains"`
}

// Matches reports whether every substring of the rule occurs in the line.
func (r Rule) Matches(line string) bool {
	for _, sub := range r.Contains {
		if !strings.Contains(line, sub) {
			return false
		}
	}
	return true
}

// DefaultRules returns the standard category rules, in evaluation order.
// The quoted fragments are literal pieces of the simulator's validation
// messages; several categories are distinguished only by them.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "initial_controller_not_found.txt", Contains: []string{`not found for "initial_controller"`}},
		{Category: "controller_referenced_not_in_facility_config.txt", Contains: []string{"referenced in route/flow but not defined in facility configuration"}},
		{Category: "inbound_assignment_not_in_control_positions.txt", Contains: []string{`which is not in "control_positions"`}},
		{Category: "position_not_in_control_positions.txt", Contains: []string{`position "`, `not found in "control_positions"`}},
		{Category: "control_position_unknown_in_scenario.txt", Contains: []string{`control position "`, "unknown in scenario"}},
		{Category: "departure_controller_unknown.txt", Contains: []string{`departure_controller "`, " unknown"}},
		{Category: "handoff_controller_not_found.txt", Contains: []string{`No controller found with id "`, " for handoff"}},
		{Category: "airport_altimeters_not_in_airports.txt", Contains: []string{`Airport "`, `in "altimeters" not found`}},
		{Category: "controller_configs_position_not_in_control_positions.txt", Contains: []string{`in "controller_configs" not defined in "control_positions"`}},
		{Category: "coordination_lists_airport_not_defined.txt", Contains: []string{`"coordination_lists"`, `Airport "`, "not defined in scenario group"}},
		{Category: "coordination_lists_hold_for_release.txt", Contains: []string{`isn't "hold_for_release" but is in "coordination_lists"`}},
		{Category: "video_map_default_maps_not_found.txt", Contains: []string{`video map "`, `in "default_maps" not found`}},
		{Category: "scope_char_redundant.txt", Contains: []string{`"scope_char" is redundant`}},
	}
}

// RulesErrorType represents the type of rules file error.
type RulesErrorType string

const (
	RulesFileNotFound RulesErrorType = "FILE_NOT_FOUND"
	InvalidRules      RulesErrorType = "INVALID_RULES"
)

// RulesError represents an error loading a rules file.
type RulesError struct {
	Type    RulesErrorType
	Path    string
	Message string
}

func (e *RulesError) Error() string {
	switch e.Type {
	case RulesFileNotFound:
		return fmt.Sprintf("rules file not found: %s", e.Path)
	default:
		return fmt.Sprintf("invalid rules file %s: %s", e.Path, e.Message)
	}
}

// rulesFile is the YAML document shape for --rules.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered rule list from a YAML file. The file replaces
// the default rules wholesale; ordering in the file is the evaluation order.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &RulesError{Type: RulesFileNotFound, Path: path}
		}
		return nil, &RulesError{Type: RulesFileNotFound, Path: path, Message: err.Error()}
	}

	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &RulesError{Type: InvalidRules, Path: path, Message: err.Error()}
	}

	if len(doc.Rules) == 0 {
		return nil, &RulesError{Type: InvalidRules, Path: path, Message: "rules list is empty"}
	}
	for i, rule := range doc.Rules {
		if rule.Category == "" {
			return nil, &RulesError{Type: InvalidRules, Path: path, Message: fmt.Sprintf("rules[%d]: category cannot be empty", i)}
		}
		if rule.Category == FallbackCategory {
			return nil, &RulesError{Type: InvalidRules, Path: path, Message: fmt.Sprintf("rules[%d]: %q is reserved for the fallback bucket", i, FallbackCategory)}
		}
		if len(rule.Contains) == 0 {
			return nil, &RulesError{Type: InvalidRules, Path: path, Message: fmt.Sprintf("rules[%d]: contains cannot be empty", i)}
		}
	}

	return doc.Rules, nil
}
