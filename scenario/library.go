package scenario

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/exp/slices"
)

//go:embed scripts/*.yaml
var scripts embed.FS

// Names lists the built-in scenarios.
func Names() []string {
	entries, err := fs.ReadDir(scripts, "scripts")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	slices.Sort(names)
	return names
}

// Load returns a built-in scenario by name.
func Load(name string) (*Script, error) {
	b, err := scripts.ReadFile(path.Join("scripts", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown scenario %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return Parse(b)
}

// Open loads a built-in scenario, or a file if ref names one.
func Open(ref string) (*Script, error) {
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") || strings.ContainsRune(ref, '/') {
		return LoadFile(ref)
	}
	return Load(ref)
}
