package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed database server version.
type Version struct {
	Major, Minor, Patch int
	MariaDB             bool
	Raw                 string
}

// MariaDB reports a 5.5.5- compatibility prefix before its real version.
var versionPattern = regexp.MustCompile(`^(?:5\.5\.5-)?(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion parses a SELECT VERSION() result such as "8.0.35",
// "5.7.44-log" or "10.11.6-MariaDB-0+deb12u1".
func ParseVersion(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	v := Version{Raw: raw, MariaDB: strings.Contains(strings.ToLower(raw), "mariadb")}

	m := versionPattern.FindStringSubmatch(raw)
	if m == nil {
		return v, fmt.Errorf("unrecognized server version %q", raw)
	}
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v, nil
}

// AtLeast reports whether v is major.minor or newer.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

func (v Version) String() string {
	if v.Raw != "" {
		return v.Raw
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
