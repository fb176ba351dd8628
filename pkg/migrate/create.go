package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

var migrationTmpl = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.Name}}: keep statements portable between postgres and sqlite3
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback {{.Name}}
-- +goose StatementEnd
`))

// Migration is one versioned goose SQL file.
type Migration struct {
	Version string
	Name    string
	File    string
}

func slug(name string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes an empty goose migration named
// <YYYYMMDDHHMMSS>_<slug>.sql into dir and returns its path.
func CreateSQLMigration(dir string, name string) (string, error) {
	m, err := newMigration(name, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	path := filepath.Join(dir, m.File)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", path, err)
	}
	defer f.Close()

	if err := migrationTmpl.Execute(f, m); err != nil {
		return "", fmt.Errorf("render migration %q: %w", path, err)
	}
	return path, nil
}

func newMigration(name string, now time.Time) (Migration, error) {
	s := slug(name)
	if s == "" {
		return Migration{}, fmt.Errorf("migration name %q has no usable characters", name)
	}
	version := now.Format("20060102150405")
	return Migration{Version: version, Name: s, File: version + "_" + s + ".sql"}, nil
}
