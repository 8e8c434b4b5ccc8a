// Package mapping holds the tile type tables the sensor classifies against.
// The tables are loaded from a JSON file once at startup and are read-only
// afterwards.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"chosenoffset.com/gridsense/internal/config"
)

// TypeID identifies a recognized tile category. Configured ids are
// non-negative; TypeUnknown is reserved for colors that match nothing.
type TypeID int

// TypeUnknown is assigned to cells whose color has no exact or tolerant match.
const TypeUnknown TypeID = -1

// RGB is an exact 8-bit color triple. It is comparable and usable as a map
// key, replacing the "R,G,B" string keys of the on-disk format in the
// classification hot path.
type RGB struct {
	R, G, B uint8
}

// String renders the triple in the on-disk "R,G,B" form.
func (c RGB) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// ParseRGB parses an "R,G,B" key. Each channel must be an integer in 0..255.
func ParseRGB(s string) (RGB, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("expected three channels, got %d", len(parts))
	}
	var ch [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return RGB{}, fmt.Errorf("channel %d is not an integer: %q", i, p)
		}
		if v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("channel %d out of range: %d", i, v)
		}
		ch[i] = uint8(v)
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}

// Entry is one color table row. Entries returns them in ascending TypeID
// order so tolerant matching is deterministic.
type Entry struct {
	Color RGB
	Type  TypeID
}

// fileFormat mirrors the type_mappings.json document.
type fileFormat struct {
	ColorToType    map[string]int                    `json:"color_to_type"`
	TypeAliases    map[string]string                 `json:"type_aliases"`
	TileProperties map[string]map[string]interface{} `json:"tile_properties"`
}

// Store is the loaded type mapping. It is immutable after Load; the sensing
// loop only reads it.
type Store struct {
	colorToType map[RGB]TypeID
	aliases     map[TypeID]string
	properties  map[string]map[string]interface{}
	entries     []Entry
}

// Load reads and parses a type mapping file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read type mappings %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		var cerr *config.Error
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return nil, err
	}
	return s, nil
}

// Parse builds a Store from raw JSON. Malformed entries produce a
// *config.Error naming the offending key. Loading has no side effects beyond
// populating the in-memory tables.
func Parse(data []byte) (*Store, error) {
	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &config.Error{Key: "", Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}

	s := &Store{
		colorToType: make(map[RGB]TypeID),
		aliases:     make(map[TypeID]string),
		properties:  raw.TileProperties,
	}

	// Sort the keys so duplicate resolution (and the warning it logs) is
	// deterministic: the lexically later key wins.
	colorKeys := make([]string, 0, len(raw.ColorToType))
	for k := range raw.ColorToType {
		colorKeys = append(colorKeys, k)
	}
	sort.Strings(colorKeys)

	for _, key := range colorKeys {
		id := raw.ColorToType[key]
		rgb, err := ParseRGB(key)
		if err != nil {
			return nil, &config.Error{Key: key, Msg: fmt.Sprintf("bad color key: %v", err)}
		}
		if id < 0 {
			return nil, &config.Error{Key: key, Msg: fmt.Sprintf("type id must be non-negative, got %d", id)}
		}
		if prev, ok := s.colorToType[rgb]; ok {
			log.Printf("Warning: duplicate color key %s (type %d replaces type %d)", rgb, id, prev)
		}
		s.colorToType[rgb] = TypeID(id)
	}

	for key, name := range raw.TypeAliases {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, &config.Error{Key: key, Msg: fmt.Sprintf("alias key is not an integer: %q", key)}
		}
		if id < 0 {
			return nil, &config.Error{Key: key, Msg: fmt.Sprintf("alias type id must be non-negative, got %d", id)}
		}
		s.aliases[TypeID(id)] = name
	}

	s.entries = make([]Entry, 0, len(s.colorToType))
	for rgb, id := range s.colorToType {
		s.entries = append(s.entries, Entry{Color: rgb, Type: id})
	}
	sort.Slice(s.entries, func(i, j int) bool {
		a, b := s.entries[i], s.entries[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Color.R != b.Color.R {
			return a.Color.R < b.Color.R
		}
		if a.Color.G != b.Color.G {
			return a.Color.G < b.Color.G
		}
		return a.Color.B < b.Color.B
	})

	return s, nil
}

// LookupType performs an exact-match color lookup.
func (s *Store) LookupType(c RGB) (TypeID, bool) {
	id, ok := s.colorToType[c]
	return id, ok
}

// ResolveAlias returns the display name configured for a type id.
func (s *Store) ResolveAlias(id TypeID) (string, bool) {
	name, ok := s.aliases[id]
	return name, ok
}

// DisplayName returns the alias for a type id, or its numeric form when no
// alias is configured ("t3"); TypeUnknown renders as "t?".
func (s *Store) DisplayName(id TypeID) string {
	if name, ok := s.aliases[id]; ok {
		return name
	}
	if id == TypeUnknown {
		return "t?"
	}
	return fmt.Sprintf("t%d", id)
}

// Entries returns the color table in ascending TypeID order.
func (s *Store) Entries() []Entry {
	return s.entries
}

// Len returns the number of distinct mapped colors.
func (s *Store) Len() int {
	return len(s.colorToType)
}

// PropertyBool retrieves a boolean tile property for an alias, such as
// "walkable". Missing aliases or properties return the default.
func (s *Store) PropertyBool(alias, key string, defaultVal bool) bool {
	props, ok := s.properties[alias]
	if !ok {
		return defaultVal
	}
	val, ok := props[key]
	if !ok {
		return defaultVal
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return defaultVal
}
