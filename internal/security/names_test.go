package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckName(t *testing.T) {
	safe := []string{"articles", "blog.articles", "`order`", `"my col"`, "[t]", "COUNT(*) AS n", "t.*", "*"}
	for _, n := range safe {
		assert.NoError(t, CheckName(n), n)
	}

	unsafe := []string{
		"articles; DROP TABLE users",
		"title -- comment",
		"title /* x */",
		"title # x",
	}
	for _, n := range unsafe {
		assert.ErrorIs(t, CheckName(n), ErrUnsafeName, n)
	}
}

func TestCheckNames(t *testing.T) {
	assert.NoError(t, CheckNames("a", "b"))
	assert.ErrorIs(t, CheckNames("a", "b;"), ErrUnsafeName)
}
