// Package refdata loads the reference control-position document used to
// derive standardized controller display names.
package refdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// RefErrorType represents the type of reference-document error.
type RefErrorType string

const (
	FileNotFound RefErrorType = "FILE_NOT_FOUND"
	InvalidJSON  RefErrorType = "INVALID_JSON"
)

// RefError represents an error that occurred while loading the reference document.
type RefError struct {
	Type    RefErrorType
	Path    string
	Message string
}

func (e *RefError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("reference document not found: %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in reference document: %s", e.Message)
	default:
		return fmt.Sprintf("reference document error: %s", e.Message)
	}
}

// Position is a single control position from the reference document.
// Facility and SectorToken are parsed from the display name; SectorToken is
// format-preserving (a leading zero is significant).
type Position struct {
	Facility    string
	SectorToken string
	DisplayName string
}

type positionKey struct {
	facility string
	sector   string
}

// PositionSet is an immutable index of reference positions keyed by
// (facility code, sector token).
type PositionSet struct {
	byKey      map[positionKey]string
	byFacility map[string][]Position
}

// positionInfo is the subset of a reference entry's value we care about.
type positionInfo struct {
	SectorID string `json:"sector_id"`
}

// Load reads and indexes the reference document at the given path.
// The position map is either the document root or nested under a
// "control_positions" key. Entries whose value is not an object, that lack a
// non-empty sector_id, or whose display name does not parse into a
// "Z"-prefixed facility code plus sector token are skipped silently.
func Load(path string) (*PositionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &RefError{Type: FileNotFound, Path: path}
		}
		return nil, &RefError{Type: FileNotFound, Path: path, Message: err.Error()}
	}
	return Parse(data)
}

// Parse indexes a reference document from raw JSON bytes.
func Parse(data []byte) (*PositionSet, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &RefError{Type: InvalidJSON, Message: err.Error()}
	}

	positions := root
	if nested, ok := root["control_positions"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err != nil {
			return nil, &RefError{Type: InvalidJSON, Message: fmt.Sprintf("control_positions: %s", err.Error())}
		}
		positions = inner
	}

	var entries []Position
	for name, raw := range positions {
		var info positionInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			continue // not an object; skip
		}
		if info.SectorID == "" {
			continue
		}

		facility, sector, ok := parseDisplayName(name)
		if !ok {
			continue
		}
		entries = append(entries, Position{Facility: facility, SectorToken: sector, DisplayName: name})
	}

	// Deterministic order regardless of document map iteration: when two
	// entries collide on (facility, sector token), the lexically smaller
	// display name wins.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Facility != entries[j].Facility {
			return entries[i].Facility < entries[j].Facility
		}
		if entries[i].SectorToken != entries[j].SectorToken {
			return entries[i].SectorToken < entries[j].SectorToken
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	set := &PositionSet{
		byKey:      make(map[positionKey]string),
		byFacility: make(map[string][]Position),
	}
	for _, pos := range entries {
		key := positionKey{pos.Facility, pos.SectorToken}
		if _, exists := set.byKey[key]; exists {
			continue
		}
		set.byKey[key] = pos.DisplayName
		set.byFacility[pos.Facility] = append(set.byFacility[pos.Facility], pos)
	}

	return set, nil
}

// parseDisplayName splits a display name like "ZNY 26 Lancaster" into its
// facility code and sector token. The label is optional; names with fewer
// than two tokens or a facility code not starting with "Z" do not parse.
func parseDisplayName(name string) (facility, sector string, ok bool) {
	parts := strings.Fields(name)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "Z") {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Lookup returns the display name for an exact (facility, sector token) key.
func (s *PositionSet) Lookup(facility, sectorToken string) (string, bool) {
	name, ok := s.byKey[positionKey{facility, sectorToken}]
	return name, ok
}

// SectorsFor returns all positions for a facility code, sorted by sector token.
func (s *PositionSet) SectorsFor(facility string) []Position {
	list := s.byFacility[facility]
	out := make([]Position, len(list))
	copy(out, list)
	return out
}

// Len returns the number of indexed positions.
func (s *PositionSet) Len() int {
	return len(s.byKey)
}

// Facilities returns the facility codes present in the set, sorted.
func (s *PositionSet) Facilities() []string {
	codes := make([]string, 0, len(s.byFacility))
	for code := range s.byFacility {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
