package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
)

var fileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// ValidateDir checks the migrations in a directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	_, err := List(os.DirFS(dir), ".")
	return err
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() ([]Migration, error) {
	return List(embedded, DefaultDir)
}

// List parses and validates every .sql file under dir, ordered by version.
// Versions must be unique and every file needs goose Up and Down sections
// with balanced statement blocks.
func List(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	byVersion := map[string]string{}
	var out []Migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := fileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (want YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := byVersion[m[1]]; ok {
			return nil, fmt.Errorf("version %s used by %q and %q", m[1], prev, name)
		}
		byVersion[m[1]] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkBody(string(body)); err != nil {
			return nil, fmt.Errorf("migration %q: %w", name, err)
		}
		out = append(out, Migration{Version: m[1], Name: m[2], File: name})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func checkBody(body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf(`missing "-- +goose Up"`)
	case down < 0:
		return fmt.Errorf(`missing "-- +goose Down"`)
	case down < up:
		return fmt.Errorf("down section precedes up section")
	}
	if b, e := strings.Count(body, "-- +goose StatementBegin"), strings.Count(body, "-- +goose StatementEnd"); b != e {
		return fmt.Errorf("unbalanced statement blocks (%d begin, %d end)", b, e)
	}
	return nil
}
