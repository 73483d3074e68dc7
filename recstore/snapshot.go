package recstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/kjk/reckeep/atomicfile"
	"github.com/klauspost/compress/zstd"
)

// maxSnapshotSize limits decompressed size of a snapshot
var maxSnapshotSize int64 = 1 << 30

// writeFileAtomic writes to path with perm permissions via atomicfile:
// path is only replaced if write and close succeeded
func writeFileAtomic(path string, perm fs.FileMode, write func(w io.Writer) error) error {
	f, err := atomicfile.NewWithPerm(path, perm)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if err = write(f); err != nil {
		return err
	}
	return f.Close()
}

// SnapshotName returns a path next to the store file for a snapshot taken at t
func (s *Store) SnapshotName(t time.Time) string {
	return fmt.Sprintf("%s.%s.zst", s.path, t.Format("20060102-150405"))
}

// Snapshot writes zstd-compressed copy of the store file to dst.
// A store that doesn't exist yet is written as an empty snapshot.
func (s *Store) Snapshot(dst string) error {
	var src io.Reader = bytes.NewReader(nil)
	f, err := os.Open(s.path)
	if err == nil {
		defer f.Close()
		src = f
	} else if !errors.Is(err, fs.ErrNotExist) {
		return ioErr("open store", err)
	}

	err = writeFileAtomic(dst, storePerm, func(w io.Writer) error {
		// store files are small, SpeedBestCompression is not noticeably slower
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return err
		}
		if _, err = io.Copy(zw, src); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
	if err != nil {
		return ioErr("write snapshot", err)
	}
	return nil
}

func readSnapshot(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f, zstd.WithDecoderMaxMemory(uint64(maxSnapshotSize)))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	d, err := io.ReadAll(io.LimitReader(zr, maxSnapshotSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(d)) > maxSnapshotSize {
		return nil, fmt.Errorf("decompressed size exceeds %d bytes", maxSnapshotSize)
	}
	return d, nil
}

// Restore replaces the store with the records of a snapshot created by Snapshot.
// Every record is decoded first, so a corrupt snapshot leaves the store as it was.
// The restored store keeps permissions of the file it replaces.
// Returns number of restored records.
func (s *Store) Restore(src string) (int, error) {
	d, err := readSnapshot(src)
	if err != nil {
		return 0, ioErr("read snapshot", err)
	}
	records, err := s.decodeLines(bytes.NewReader(d))
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", src, err)
	}
	if err = s.ensureDir(); err != nil {
		return 0, err
	}
	// keep permissions of the store being replaced
	perm := storePerm
	if st, err := os.Stat(s.path); err == nil {
		perm = st.Mode().Perm()
	}
	err = writeFileAtomic(s.path, perm, func(w io.Writer) error {
		_, err := w.Write(d)
		return err
	})
	if err != nil {
		return 0, ioErr("replace store", err)
	}
	return len(records), nil
}
