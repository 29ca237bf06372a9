package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFileCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.md")
	require.NoError(t, SafeWriteFile(path, []byte("# Sales\n")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Sales\n", string(b))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Equal(t, 1, CountTokens("hi"))
	assert.Equal(t, 3, CountTokens("twelve chars"))
	assert.Equal(t, map[string]int{"q": 1, "payload": 2}, TokenBreakdown(map[string]string{"q": "abc", "payload": "abcdefgh"}))
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"rows\": 2\n}", string(b))
}
