// Package profile discovers game profiles in the data directory. A profile
// is a directory holding the mapping tables for one game, so the same sensor
// binary can be pointed at different titles.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Profile is a discoverable game profile.
type Profile struct {
	Name         string // display name (directory name)
	MappingsPath string // type mapping table
	BindingsPath string // controller bindings; empty when the profile has none
}

// ScanDataDirectory scans the data directory for game profiles. A
// subdirectory is a profile when it contains a type_mappings.json; the data
// directory itself is included as the "default" profile when it has one.
func ScanDataDirectory(dataPath string) ([]Profile, error) {
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var profiles []Profile
	if p, ok := profileAt(dataPath, "default"); ok {
		profiles = append(profiles, p)
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if p, ok := profileAt(filepath.Join(dataPath, entry.Name()), entry.Name()); ok {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

// Find returns the named profile from a scan of the data directory.
func Find(dataPath, name string) (Profile, error) {
	profiles, err := ScanDataDirectory(dataPath)
	if err != nil {
		return Profile{}, err
	}
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return Profile{}, fmt.Errorf("no profile %q in %s (available: %s)", name, dataPath, strings.Join(names, ", "))
}

func profileAt(dir, name string) (Profile, bool) {
	mappings := filepath.Join(dir, "type_mappings.json")
	if _, err := os.Stat(mappings); err != nil {
		return Profile{}, false
	}
	p := Profile{Name: name, MappingsPath: mappings}
	bindings := filepath.Join(dir, "controller_bindings.json")
	if _, err := os.Stat(bindings); err == nil {
		p.BindingsPath = bindings
	}
	return p, true
}
