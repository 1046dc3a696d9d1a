package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/trysourcetool/sourcetool/pkg/domain"
)

// ManifestFile is looked up in a pages directory before falling back to *.js discovery.
const ManifestFile = "pages.yaml"

// Page pairs a page with its compiled script.
type Page struct {
	Page    domain.Page
	Program *Program
}

// ManifestEntry is one page in pages.yaml.
type ManifestEntry struct {
	Name   string   `yaml:"name"`
	Route  string   `yaml:"route"`
	Script string   `yaml:"script"`
	Groups []string `yaml:"groups"`
}

// Manifest is the structure of pages.yaml.
type Manifest struct {
	Pages []ManifestEntry `yaml:"pages"`
}

// LoadDir loads the pages of dir. With a pages.yaml the manifest decides names,
// routes, groups and order; otherwise every *.js file becomes a page routed
// at its base name, in lexical order.
func LoadDir(dir string, opts ...Option) ([]Page, error) {
	manifest := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(manifest); err == nil {
		return LoadManifest(manifest, opts...)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.js"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no page scripts in %s", dir)
	}
	sort.Strings(files)

	pages := make([]Page, 0, len(files))
	for i, path := range files {
		base := strings.TrimSuffix(filepath.Base(path), ".js")
		entry := ManifestEntry{Name: title(base), Route: "/" + base, Script: path}
		p, err := load(entry, i, opts)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// LoadManifest loads the pages listed in a pages.yaml. Script paths are relative to the manifest.
func LoadManifest(path string, opts ...Option) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(m.Pages) == 0 {
		return nil, fmt.Errorf("%s lists no pages", path)
	}

	dir := filepath.Dir(path)
	routes := make(map[string]bool, len(m.Pages))
	pages := make([]Page, 0, len(m.Pages))
	for i, entry := range m.Pages {
		if entry.Script == "" {
			return nil, fmt.Errorf("page %d in %s has no script", i, path)
		}
		if !filepath.IsAbs(entry.Script) {
			entry.Script = filepath.Join(dir, entry.Script)
		}
		if entry.Route == "" {
			entry.Route = "/" + strings.TrimSuffix(filepath.Base(entry.Script), ".js")
		}
		if !strings.HasPrefix(entry.Route, "/") {
			entry.Route = "/" + entry.Route
		}
		if routes[entry.Route] {
			return nil, fmt.Errorf("duplicate route %s in %s", entry.Route, path)
		}
		routes[entry.Route] = true
		if entry.Name == "" {
			entry.Name = title(strings.TrimPrefix(entry.Route, "/"))
		}
		p, err := load(entry, i, opts)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func load(entry ManifestEntry, index int, opts []Option) (Page, error) {
	prog, err := CompileFile(entry.Script, opts...)
	if err != nil {
		return Page{}, err
	}
	page := domain.NewPage(entry.Name, entry.Route, entry.Groups...)
	page.Path = []int{index}
	return Page{Page: page, Program: prog}, nil
}

// title turns "user-list" into "User list".
func title(base string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(base)
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
