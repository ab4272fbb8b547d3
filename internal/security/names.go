package security

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnsafeName is returned for a table or column name that could end the
// statement it is spliced into.
var ErrUnsafeName = errors.New("unsafe identifier")

// unsafeNamePatterns match comment markers and statement separators.
var unsafeNamePatterns = compilePatterns([]string{
	`--`,
	`/\*`,
	`\*/`,
	`#\s`,
	`;`,
})

// CheckName rejects names that would smuggle extra SQL into a generated
// statement. Quoted names, qualified names and simple expressions such as
// "COUNT(*) AS n" pass.
func CheckName(name string) error {
	for _, p := range unsafeNamePatterns {
		if p.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrUnsafeName, name)
		}
	}
	return nil
}

// CheckNames applies CheckName to every name.
func CheckNames(names ...string) error {
	for _, n := range names {
		if err := CheckName(n); err != nil {
			return err
		}
	}
	return nil
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}
