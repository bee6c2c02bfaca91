package sqlrows

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// LocalPath resolves a database file named by a caller against dataDir.
// Relative names are joined onto dataDir and the result must stay inside it.
func LocalPath(dataDir, name string) (string, error) {
	if strings.TrimSpace(dataDir) == "" {
		return "", fmt.Errorf("database files are disabled; only :memory: is allowed")
	}
	root, err := filepath.Abs(dataDir)
	if err != nil {
		return "", fmt.Errorf("resolve data directory: %w", err)
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("database file %q is outside the data directory", name)
	}
	return path, nil
}

// RejectStatements returns a Guard that refuses any statement containing one
// of keywords as a whole word, case-insensitively.
func RejectStatements(keywords ...string) func(string) error {
	quoted := make([]string, len(keywords))
	for i, keyword := range keywords {
		quoted[i] = regexp.QuoteMeta(strings.ToUpper(keyword))
	}
	pattern := regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	return func(sqlText string) error {
		if match := pattern.FindString(strings.ToUpper(sqlText)); match != "" {
			return fmt.Errorf("%s statements are not allowed on this engine", match)
		}
		return nil
	}
}
