package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeFilename("report.pdf"))
	assert.Equal(t, "evil.sh", SanitizeFilename("../../etc/evil.sh"))
	assert.Equal(t, "na me_.tar.gz", SanitizeFilename("na me#.tar.gz"))
	assert.Equal(t, "a_b_c", SanitizeFilename("a|b>c"))
}

func TestRenewOutputPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	renewed := RenewOutputPath(path)
	assert.Equal(t, filepath.Join(dir, "file-(1).bin"), renewed)

	require.NoError(t, os.WriteFile(renewed, []byte("x"), 0644))
	assert.Equal(t, filepath.Join(dir, "file-(2).bin"), RenewOutputPath(path))
}

func TestParseHeaderArgs(t *testing.T) {
	headers := ParseHeaderArgs([]string{
		"Authorization: Bearer token",
		"X-Custom:value",
		"garbage-without-colon",
	})
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer token",
		"X-Custom":      "value",
	}, headers)
}

func TestCleanParts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin.part"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.iso.part"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.bin"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.part"), 0755))

	removed, err := CleanParts(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = os.Stat(filepath.Join(dir, "keep.bin"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "sub.part"))
	assert.NoError(t, err)
}
