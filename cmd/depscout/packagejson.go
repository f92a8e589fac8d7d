package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
)

// defaultPackageJSON is read when no package is named on the command line.
const defaultPackageJSON = "package.json"

// errNoPackageJSON is returned when the manifest does not exist.
var errNoPackageJSON = errors.New("no package.json file found in this directory")

// manifest is the part of package.json depscout reads.
type manifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// readPackageJSON returns the sorted, de-duplicated names of the
// dependencies and devDependencies declared in path.
func readPackageJSON(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errNoPackageJSON, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	names := make([]string, 0, len(m.Dependencies)+len(m.DevDependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	for name := range m.DevDependencies {
		names = append(names, name)
	}

	slices.Sort(names)
	return slices.Compact(names), nil
}
