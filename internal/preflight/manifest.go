// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package preflight

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// manifestSections are the package.json objects whose keys are installed packages.
var manifestSections = []string{"dependencies", "devDependencies"}

// Dependency is a package declared in the manifest together with its version range.
type Dependency struct {
	Name  string
	Range string
}

// InstallSpec is the install argument that honours the declared range, e.g.
// "express@^4.18.2". A dependency without a range installs by name.
func (d Dependency) InstallSpec() string {
	if d.Range == "" {
		return d.Name
	}
	return d.Name + "@" + d.Range
}

// DeclaredDependencies reads the packages declared in a package.json manifest,
// in document order. A package listed in both sections keeps its first range.
func DeclaredDependencies(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("manifest %s is not valid JSON", path)
	}

	var deps []Dependency
	seen := make(map[string]bool)
	for _, section := range manifestSections {
		gjson.GetBytes(data, section).ForEach(func(key, value gjson.Result) bool {
			name, ok := PackageName(key.String())
			if !ok || seen[name] {
				return true
			}
			seen[name] = true
			deps = append(deps, Dependency{Name: name, Range: strings.TrimSpace(value.String())})
			return true
		})
	}
	return deps, nil
}
