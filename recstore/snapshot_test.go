package recstore

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert"
	"github.com/klauspost/compress/zstd"
)

func writeZstd(t *testing.T, path string, d []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	assert.NoError(t, err)
	_, err = zw.Write(d)
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())
	assert.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func countTmpFiles(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	assert.NoError(t, err)
	return len(matches)
}

func TestSnapshotName(t *testing.T) {
	s, err := New(Config{Path: "data/store.txt"})
	assert.NoError(t, err)
	tm := time.Date(2024, 3, 7, 9, 5, 2, 0, time.UTC)
	assert.Equal(t, "data/store.txt.20240307-090502.zst", s.SnapshotName(tm))
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestStore(t, "")
	r1 := Record{"file": "a.txt", "rule": "r1", "result": "pass"}
	r2 := Record{"file": "b.txt", "rule": "r2", "result": "fail"}
	assert.NoError(t, s.Append(r1))
	assert.NoError(t, s.Append(r2))
	before := readFile(t, s.Path())

	snap := s.SnapshotName(time.Now())
	assert.NoError(t, s.Snapshot(snap))
	assert.Equal(t, 0, countTmpFiles(t, filepath.Dir(s.Path())))

	assert.NoError(t, s.Initialize())
	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(records))

	n, err := s.Restore(snap)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	records, err = s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, []Record{r1, r2}, records)
	assert.Equal(t, before, readFile(t, s.Path()))

	// store is still appendable after restore
	assert.NoError(t, s.Append(r1))
	records, err = s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, 3, len(records))
}

func TestSnapshotMissingStore(t *testing.T) {
	s := newTestStore(t, "")
	snap := filepath.Join(t.TempDir(), "empty.zst")
	assert.NoError(t, s.Snapshot(snap))

	n, err := s.Restore(snap)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "", readFile(t, s.Path()))
}

func TestRestoreMalformedKeepsStore(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Append(Record{"file": "keep"}))
	before := readFile(t, s.Path())

	snap := filepath.Join(t.TempDir(), "bad.zst")
	writeZstd(t, snap, []byte("file=a|rule=r1\nfile=b|badpart\n"))
	n, err := s.Restore(snap)
	assertIs(t, err, ErrMalformedRecord)
	assert.Equal(t, 0, n)
	assert.Equal(t, before, readFile(t, s.Path()))
	assert.Equal(t, 0, countTmpFiles(t, filepath.Dir(s.Path())))
}

func TestRestoreNotZstd(t *testing.T) {
	s := newTestStore(t, "")
	snap := filepath.Join(t.TempDir(), "plain.zst")
	assert.NoError(t, os.WriteFile(snap, []byte("file=a|rule=r1|result=pass\n"), 0644))
	_, err := s.Restore(snap)
	assertIs(t, err, ErrIO)

	_, err = s.Restore(filepath.Join(t.TempDir(), "missing.zst"))
	assertIs(t, err, ErrIO)
}

func TestWriteFileAtomicFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	assert.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	errWrite := os.ErrClosed
	err := writeFileAtomic(path, storePerm, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errWrite
	})
	assert.Equal(t, errWrite, err)
	assert.Equal(t, "old", readFile(t, path))
	assert.Equal(t, 0, countTmpFiles(t, dir))
}

func fileMode(t *testing.T, path string) fs.FileMode {
	t.Helper()
	st, err := os.Stat(path)
	assert.NoError(t, err)
	return st.Mode().Perm()
}

func TestRestoreKeepsMode(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Append(Record{"file": "a.txt"}))
	before := fileMode(t, s.Path())

	snap := s.SnapshotName(time.Now())
	assert.NoError(t, s.Snapshot(snap))
	assert.Equal(t, storePerm, fileMode(t, snap))

	_, err := s.Restore(snap)
	assert.NoError(t, err)
	assert.Equal(t, before, fileMode(t, s.Path()))

	// permissions changed by the user survive a restore
	assert.NoError(t, os.Chmod(s.Path(), 0640))
	_, err = s.Restore(snap)
	assert.NoError(t, err)
	assert.Equal(t, fs.FileMode(0640), fileMode(t, s.Path()))
}

func TestRestoreNewStoreMode(t *testing.T) {
	s := newTestStore(t, "")
	snap := filepath.Join(t.TempDir(), "snap.zst")
	writeZstd(t, snap, []byte("file=a|rule=r1|result=pass\n"))

	n, err := s.Restore(snap)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, storePerm, fileMode(t, s.Path()))
}

func TestRestoreTooLarge(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Append(Record{"file": "keep"}))
	before := readFile(t, s.Path())

	d := bytes.Repeat([]byte("file=a|rule=r1|result=pass\n"), 100)
	snap := filepath.Join(t.TempDir(), "big.zst")
	writeZstd(t, snap, d)

	prev := maxSnapshotSize
	maxSnapshotSize = int64(len(d)) - 1
	defer func() { maxSnapshotSize = prev }()

	_, err := s.Restore(snap)
	assertIs(t, err, ErrIO)
	assert.Equal(t, before, readFile(t, s.Path()))
	assert.Equal(t, 0, countTmpFiles(t, filepath.Dir(s.Path())))

	maxSnapshotSize = prev
	n, err := s.Restore(snap)
	assert.NoError(t, err)
	assert.Equal(t, 100, n)
}
