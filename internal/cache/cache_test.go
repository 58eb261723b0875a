package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"blob", Key{Kind: FileBlobs, ID: "abc123"}, filepath.Join("file_blobs", "abc123.dat")},
		{"pull files", Key{Kind: PullFilesDetail, ID: "42"}, filepath.Join("pull_files_detail", "42.json")},
		{"root dir", Key{Kind: DirContents}, filepath.Join("dir_contents", "default.json")},
		{"sub dir", Key{Kind: DirContents, ID: "src/lib"}, filepath.Join("dir_contents", "c3JjL2xpYg==.json")},
		{"pulls state", Key{Kind: PullsMeta, ID: "open"}, filepath.Join("pulls_meta", "b3Blbg==.json")},
		{"asset", Key{Kind: Assets, ID: "diff2html.min.js"}, filepath.Join("assets", "diff2html.min.js")},
		{"label", Key{Kind: Consolidated, ID: "bug"}, filepath.Join("consolidated_json", "bug.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.Path())
		})
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	key := Key{Owner: "psf", Repo: "requests", Kind: FileBlobs, ID: "deadbeef"}

	assert.False(t, s.Exists(key))
	_, err := s.Read(key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(key, []byte("hello")))
	assert.True(t, s.Exists(key))
	data, err := s.Read(key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Write(key, []byte("again")))
	data, err = s.Read(key)
	require.NoError(t, err)
	assert.Equal(t, "again", string(data))

	other := key
	other.Repo = "httpx"
	assert.False(t, s.Exists(other), "keys from different repos must not collide")
}

func TestDirStore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	s := NewDirStore(root)
	testStore(t, s)

	_, err := os.Stat(filepath.Join(root, "psf", "requests", "_cache", "file_blobs", "deadbeef.dat"))
	require.NoError(t, err)
}

func TestDirStoreConcurrentWriters(t *testing.T) {
	t.Parallel()
	s := NewDirStore(t.TempDir())
	key := Key{Owner: "o", Repo: "r", Kind: PullFilesDetail, ID: "7"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Write(key, []byte(`[]`)))
		}()
	}
	wg.Wait()

	data, err := s.Read(key)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	entries, err := os.ReadDir(filepath.Dir(filepath.Join(s.CacheDir("o", "r"), key.Path())))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not be left behind")
}

func TestMemStore(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	testStore(t, s)
	assert.Equal(t, 1, s.Len())
}

func TestMemStoreCopiesData(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	key := Key{Kind: Assets, ID: "a.css"}
	buf := []byte("abc")
	require.NoError(t, s.Write(key, buf))
	buf[0] = 'x'

	data, err := s.Read(key)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}
