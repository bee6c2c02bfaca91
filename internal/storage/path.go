package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var fileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildExportPath places an export under exports/date=YYYY-MM-DD/<exportID>/<fileName>.
// The date is taken in UTC.
func BuildExportPath(exportID, fileName string, at time.Time) (string, error) {
	if err := validatePathComponent(exportID, "export id"); err != nil {
		return "", err
	}
	if err := validatePathComponent(fileName, "file name"); err != nil {
		return "", err
	}
	ts := at.UTC()
	return path.Join(
		"exports",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		exportID,
		fileName,
	), nil
}

func validatePathComponent(value, field string) error {
	if !fileNamePattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
