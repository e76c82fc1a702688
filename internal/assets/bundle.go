// Package assets resolves local directories of static configuration templates and
// fingerprints their content. The fingerprint is a change-detection key only; the
// files themselves are transferred by the remote mirror.
package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/yaegashi/iotops/internal/naming"
)

// Bundle is a named asset directory and its content fingerprint.
type Bundle struct {
	Name        string
	Path        string
	Files       []string // slash-separated paths relative to Path
	Fingerprint string
}

// Resolve loads the bundle `<root>/<name>`.
func Resolve(root, name string) (*Bundle, error) {
	dir := filepath.Join(root, name)
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve asset bundle %s: %w", name, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("asset bundle %s: %w", name, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("asset bundle %s: %s is not a directory", name, abs)
	}
	files, contents, err := walk(abs)
	if err != nil {
		return nil, fmt.Errorf("asset bundle %s: %w", name, err)
	}
	return &Bundle{
		Name:        name,
		Path:        abs,
		Files:       files,
		Fingerprint: Fingerprint(contents),
	}, nil
}

// DirectoryContent returns the contents of every regular file below dir at any
// depth, ordered by relative path.
func DirectoryContent(dir string) ([]string, error) {
	_, contents, err := walk(dir)
	return contents, err
}

// Fingerprint summarizes contents deterministically. An empty slice yields a
// valid constant fingerprint.
func Fingerprint(contents []string) string {
	return naming.DigestStrings(contents...)
}

func walk(dir string) ([]string, []string, error) {
	type entry struct{ rel, path string }
	var entries []entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, entry{rel: filepath.ToSlash(rel), path: path})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	files := make([]string, 0, len(entries))
	contents := make([]string, 0, len(entries))
	for _, e := range entries {
		b, err := os.ReadFile(e.path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", e.rel, err)
		}
		files = append(files, e.rel)
		contents = append(contents, string(b))
	}
	return files, contents, nil
}
