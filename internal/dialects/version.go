package dialects

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var versionPrefix = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// canonicalVersion turns a server version string such as "8.0.36-0ubuntu0.22.04.1"
// into a semver "v8.0.36". Returns "" when no version can be found.
func canonicalVersion(version string) string {
	// MariaDB before 11 reports "5.5.5-10.x.y-MariaDB" for replication compatibility.
	version = strings.TrimPrefix(version, "5.5.5-")
	m := versionPrefix.FindStringSubmatch(version)
	if m == nil {
		return ""
	}
	v := "v" + m[1] + "." + m[2] + "." + m[3]
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// versionAtLeast reports whether version >= minimum. An empty version is
// treated as current.
func versionAtLeast(version, minimum string) bool {
	if version == "" {
		return true
	}
	v := canonicalVersion(version)
	if v == "" {
		return false
	}
	return semver.Compare(v, "v"+minimum) >= 0
}

// IsMariaDB reports whether a version string comes from a MariaDB server.
func IsMariaDB(version string) bool {
	return strings.Contains(strings.ToLower(version), "mariadb")
}

// ForServerVersion returns the dialect matching a MySQL-family server version.
// Other dialects are returned unchanged.
func ForServerVersion(d Dialect, version string) Dialect {
	switch d.(type) {
	case *MySQLDialect, *MariaDBDialect:
		if IsMariaDB(version) {
			return &MariaDBDialect{MySQLDialect{Version: version}}
		}
		return &MySQLDialect{Version: version}
	default:
		return d
	}
}
