package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateFormatCommand(t *testing.T) {
	out, _, err := execute(t, "dateformat", "%Y-%m-%d %H:%i", "--from", "mysql", "--to", "pgsql")
	require.NoError(t, err)
	assert.Equal(t, "YYYY-MM-DD HH24:MI", strings.TrimSpace(out))
}

func TestDateFormatCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "dateformat", "YYYY-MM-DD", "--from", "pgsql", "--to", "sqlite", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   TranslationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "%Y-%m-%d", resp.Data.Output)
	assert.Equal(t, "pgsql", resp.Data.From)
	assert.Equal(t, "sqlite", resp.Data.To)
}

func TestRewriteCommand(t *testing.T) {
	out, _, err := execute(t, "rewrite", "SELECT `id` FROM `posts`", "--to", "sqlite")
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "posts"`, strings.TrimSpace(out))
}

func TestUnescapeCommand(t *testing.T) {
	out, _, err := execute(t, "unescape", `"public"."posts"`)
	require.NoError(t, err)
	assert.Equal(t, "public.posts", strings.TrimSpace(out))
}

func TestTranslation_InvalidDialect(t *testing.T) {
	out, _, err := execute(t, "rewrite", "SELECT 1", "--from", "oracle")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeDialect)
}
