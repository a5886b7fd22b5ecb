package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// DialectDirs lists the per-dialect subdirectories of the migrations root.
var DialectDirs = []string{"sqlite", "postgres"}

func sanitizeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	return safe, nil
}

// CreateSQLMigration writes an empty goose migration
// <dir>/<YYYYMMDDHHMMSS>_<name>.sql stamped with now.
func CreateSQLMigration(dir string, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe, err := sanitizeName(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	version := now.UTC().Format("20060102150405")
	fullpath := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, safe))
	if _, err := os.Stat(fullpath); err == nil {
		return "", fmt.Errorf("migration already exists: %s", fullpath)
	}

	body := fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %s
-- +goose StatementEnd
`, safe, safe)

	if err := os.WriteFile(fullpath, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}

// CreateDialectMigrations writes one migration per dialect under root, all
// sharing the same version. If any dialect fails the files already written
// are removed so the two schemas never drift apart by a half-created change.
func CreateDialectMigrations(root string, name string, now time.Time) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	if _, err := sanitizeName(name); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(DialectDirs))
	for _, dialect := range DialectDirs {
		path, err := CreateSQLMigration(filepath.Join(root, dialect), name, now)
		if err != nil {
			for _, written := range paths {
				err = multierr.Append(err, os.Remove(written))
			}
			return nil, fmt.Errorf("create %s migration: %w", dialect, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
