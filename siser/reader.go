package siser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Reader reads blocks written with MarshalLine
type Reader struct {
	r *bufio.Reader

	// hints that blocks were written without a timestamp so that
	// a single value after the size is a name and not a timestamp
	NoTimestamp bool

	// Data / Name / Timestamp are available after ReadNext.
	// They are over-written in next ReadNext.
	Data      []byte
	Name      string
	Timestamp time.Time

	err  error
	done bool
}

func NewReader(r *bufio.Reader) *Reader {
	return &Reader{
		r: r,
	}
}

// Done returns true if we're finished reading from the reader
func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

// Err returns error from last ReadNext. io.EOF is not an error
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) parseHeader(hdr []byte) (int, error) {
	errHdr := fmt.Errorf("unexpected header '%s'", string(hdr))
	rest, ok := bytes.CutPrefix(hdr, hdrPrefix)
	if !ok {
		return 0, errHdr
	}
	sizeStr, rest, _ := bytes.Cut(rest, []byte{' '})
	size, err := strconv.Atoi(string(sizeStr))
	if err != nil || size < 0 {
		return 0, errHdr
	}
	r.Name = ""
	r.Timestamp = time.Time{}
	if r.NoTimestamp {
		r.Name = string(rest)
		return size, nil
	}
	if len(rest) == 0 {
		return size, nil
	}
	tsStr, name, _ := bytes.Cut(rest, []byte{' '})
	ms, err := strconv.ParseInt(string(tsStr), 10, 64)
	if err != nil {
		return 0, errHdr
	}
	r.Timestamp = TimeFromUnixMillisecond(ms)
	r.Name = string(name)
	return size, nil
}

// ReadNext reads the next block. Returns false when there are no more
// blocks or there was an error, check Err() to tell them apart.
func (r *Reader) ReadNext() bool {
	if r.Done() {
		return false
	}
	hdr, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(hdr) == 0 {
			r.done = true
		} else if err == io.EOF {
			r.err = fmt.Errorf("truncated header '%s'", string(hdr))
		} else {
			r.err = err
		}
		return false
	}
	size, err := r.parseHeader(hdr[:len(hdr)-1])
	if err != nil {
		r.err = err
		return false
	}
	r.Data = make([]byte, size)
	if _, err = io.ReadFull(r.r, r.Data); err != nil {
		r.err = fmt.Errorf("reading %d bytes of '%s': %w", size, r.Name, err)
		return false
	}
	// skip '\n' added by MarshalLine for readability
	if size > 0 && r.Data[size-1] != '\n' {
		if _, err = r.r.Discard(1); err != nil {
			r.err = err
			return false
		}
	}
	return true
}
