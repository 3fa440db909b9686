package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Scan reads every migration file in dir and returns them ordered by version.
// Non-SQL entries are ignored; SQL files with a malformed name are rejected.
func Scan(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migration dir %q: %w", dir, err)
	}

	seen := make(map[string]string)
	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		m, err := parseFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if other, dup := seen[m.Version]; dup {
			return nil, newMigrationError(m, "scan", fmt.Errorf("%w: also defined in %s", ErrDuplicateVersion, other))
		}
		seen[m.Version] = m.FilePath
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})
	return migrations, nil
}

// ValidateFileName reports whether name follows {version}_{description}.sql.
func ValidateFileName(name string) error {
	if !fileNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, name)
	}
	return nil
}

func parseFile(fsys fs.FS, filePath string) (Migration, error) {
	name := path.Base(filePath)
	if err := ValidateFileName(name); err != nil {
		return Migration{}, &MigrationError{FilePath: filePath, Operation: "validate filename", Err: err}
	}
	matches := fileNamePattern.FindStringSubmatch(name)

	content, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return Migration{}, &MigrationError{Version: matches[1], FilePath: filePath, Operation: "read", Err: err}
	}

	m := Migration{
		Version:     matches[1],
		Description: descriptionFrom(string(content), matches[2]),
		SQL:         string(content),
		FilePath:    filePath,
		Checksum:    checksum(content),
	}
	if len(splitStatements(m.SQL)) == 0 {
		return Migration{}, newMigrationError(m, "parse", fmt.Errorf("%w: no statements", ErrInvalidMigrationFile))
	}
	return m, nil
}

// descriptionFrom prefers a leading "-- Description: ..." comment over the file name.
func descriptionFrom(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "--") {
			if line != "" {
				break
			}
			continue
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, "--"))
		if rest, ok := strings.CutPrefix(text, "Description:"); ok {
			if rest = strings.TrimSpace(rest); rest != "" {
				return rest
			}
		}
	}
	return strings.ReplaceAll(fallback, "_", " ")
}

func checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func versionNumber(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

// splitStatements splits file content on semicolons and drops comment-only
// lines. Statements must not contain semicolons inside string literals.
func splitStatements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, trimmed)
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}
