package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendDirectivesRegistersIncludeOnce(t *testing.T) {
	store := NewFileStore(t.TempDir())

	mainPath := store.MainPath("account", "s1")
	require.NoError(t, os.MkdirAll(filepath.Dir(mainPath), 0o755))
	require.NoError(t, os.WriteFile(mainPath, []byte("2025-01-01 open Assets:Bank:Checking CNY\n"), 0o644))

	require.NoError(t, store.AppendDirectives("account", "s1", []string{
		"2025-02-01 pad Assets:Bank:Checking Equity:OpenBalance",
	}))
	require.NoError(t, store.AppendDirectives("account", "s1", []string{
		"2025-02-02 balance Assets:Bank:Checking 100.00 CNY",
	}))

	data, err := os.ReadFile(mainPath)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), `include "trans.bean"`))
	require.True(t, strings.HasPrefix(string(data), "2025-01-01 open"))

	seg, err := os.ReadFile(store.SegmentPath("account", "s1"))
	require.NoError(t, err)
	require.Equal(t,
		"2025-02-01 pad Assets:Bank:Checking Equity:OpenBalance\n\n"+
			"2025-02-02 balance Assets:Bank:Checking 100.00 CNY\n\n",
		string(seg))
}

func TestAppendDirectivesCreatesMainLedger(t *testing.T) {
	store := NewFileStore(t.TempDir())

	require.NoError(t, store.AppendDirectives("card", "c1", []string{
		"2025-02-01 pad Liabilities:Card Equity:OpenBalance",
	}))

	data, err := os.ReadFile(store.MainPath("card", "c1"))
	require.NoError(t, err)
	require.Equal(t, "include \"trans.bean\"\n", string(data))
}

func TestReadAndRewriteSegment(t *testing.T) {
	store := NewFileStore(t.TempDir())

	lines, err := store.ReadSegment("account", "s1")
	require.NoError(t, err)
	require.Nil(t, lines)

	require.NoError(t, store.AppendDirectives("account", "s1", []string{
		"2025-02-01 pad Assets:Bank:Checking Equity:OpenBalance",
	}))

	lines, err = store.ReadSegment("account", "s1")
	require.NoError(t, err)
	require.Equal(t, []string{"2025-02-01 pad Assets:Bank:Checking Equity:OpenBalance", ""}, lines)

	lines[0] = "; " + lines[0]
	require.NoError(t, store.RewriteSegment("account", "s1", lines))

	lines, err = store.ReadSegment("account", "s1")
	require.NoError(t, err)
	require.Equal(t, "; 2025-02-01 pad Assets:Bank:Checking Equity:OpenBalance", lines[0])
}

func TestReadExternalTree(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	paths, err := store.ReadExternalTree("account", "s1")
	require.NoError(t, err)
	require.Empty(t, paths)

	syncDir := filepath.Join(root, "account", "s1", "sync", "2025")
	require.NoError(t, os.MkdirAll(syncDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(syncDir, "b.bean"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(syncDir, "a.bean"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(syncDir, "notes.txt"), []byte(""), 0o644))

	paths, err = store.ReadExternalTree("account", "s1")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	require.Equal(t, filepath.Join(syncDir, "a.bean"), paths[0])
	require.Equal(t, filepath.Join(syncDir, "b.bean"), paths[1])
}
