// Package replacemap builds the finalized mapping from legacy controller
// identifiers to standardized display names.
package replacemap

import (
	"fmt"
	"sort"

	"scenariotool/internal/config"
	"scenariotool/internal/refdata"
)

// Pair is a single legacy identifier -> display name mapping.
type Pair struct {
	Legacy      string
	DisplayName string
}

// Map is a read-only replacement table, fully resolved at construction.
type Map struct {
	entries map[string]string
}

// Build constructs the replacement map from the reference positions and the
// configured tables. Override entries are registered first and are never
// overwritten by derived entries. Legacy identifiers with no resolvable
// target are simply absent from the map.
func Build(positions *refdata.PositionSet, tables config.ReplacementTables) Map {
	entries := make(map[string]string, len(tables.Overrides))
	for legacy, name := range tables.Overrides {
		entries[legacy] = name
	}

	put := func(legacy, name string) {
		if _, exists := entries[legacy]; !exists {
			entries[legacy] = name
		}
	}

	// Sorted prefix order keeps construction deterministic; with
	// put-if-absent semantics the order is not observable, but it makes
	// debug logging stable.
	prefixes := make([]string, 0, len(tables.PrefixFacilities))
	for prefix := range tables.PrefixFacilities {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	for _, prefix := range prefixes {
		facility := tables.PrefixFacilities[prefix]

		if allowed, ok := tables.SectorAllowlists[prefix]; ok {
			// Restricted prefix: derive only the enumerated sector tokens,
			// and only when the reference holds that exact key.
			for _, sector := range allowed {
				if name, found := positions.Lookup(facility, sector); found {
					put(legacyIdentifier(prefix, sector), name)
				}
			}
			continue
		}

		for _, pos := range positions.SectorsFor(facility) {
			put(legacyIdentifier(prefix, pos.SectorToken), pos.DisplayName)
		}
	}

	return Map{entries: entries}
}

// legacyIdentifier forms the canonical legacy callsign for a prefix and
// sector token. The sector token is format-preserving.
func legacyIdentifier(prefix, sector string) string {
	return fmt.Sprintf("%s_%s_CTR", prefix, sector)
}

// Lookup returns the display name for a legacy identifier.
func (m Map) Lookup(legacy string) (string, bool) {
	name, ok := m.entries[legacy]
	return name, ok
}

// Len returns the number of mappings.
func (m Map) Len() int {
	return len(m.entries)
}

// Pairs returns all mappings sorted by legacy identifier.
func (m Map) Pairs() []Pair {
	pairs := make([]Pair, 0, len(m.entries))
	for legacy, name := range m.entries {
		pairs = append(pairs, Pair{Legacy: legacy, DisplayName: name})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Legacy < pairs[j].Legacy
	})
	return pairs
}
