// Package version reports the c4pm release, embedded from the VERSION file.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Dev is reported when the embedded VERSION file is empty.
const Dev = "dev"

// Get returns the release version, or Dev for an unversioned build.
func Get() string {
	return orDev(versionContent)
}

func orDev(content string) string {
	if v := strings.TrimSpace(content); v != "" {
		return v
	}
	return Dev
}
