package siser

import (
	"bytes"
	"strconv"
	"time"
)

/*
A siser file is a sequence of length-prefixed blocks of data, each with an
optional timestamp and name. Each block starts with a header line:

	--- ${size} ${timestamp_in_unix_epoch_ms} ${name}\n

followed by ${size} bytes of data. For readability, if data doesn't end
with '\n', a '\n' is added after it.

Because the size is known, data can contain anything, including lines
that look like a header.
*/

var hdrPrefix = []byte("--- ")

// MarshalLine serializes d as a block with a header.
// if t is zero time, it's not written. If name is empty, it's not written.
// wb is re-used if not nil, the result is valid until next use of wb
func MarshalLine(name string, t time.Time, d []byte, wb *bytes.Buffer) []byte {
	if wb == nil {
		wb = &bytes.Buffer{}
	} else {
		wb.Reset()
	}
	// it's ok to estimate more, estimating less will require an alloc
	wb.Grow(len(hdrPrefix) + len(name) + len(d) + 32)

	wb.Write(hdrPrefix)
	n := len(d)
	wb.WriteString(strconv.Itoa(n))
	if !t.IsZero() {
		wb.WriteByte(' ')
		wb.WriteString(strconv.FormatInt(TimeToUnixMillisecond(t), 10))
	}
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	if n > 0 {
		wb.Write(d)
		if d[n-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}

// TimeToUnixMillisecond converts t into Unix epoch time in milliseconds.
// That's because seconds is not enough precision and nanoseconds is too much.
func TimeToUnixMillisecond(t time.Time) int64 {
	return t.UnixMilli()
}

// TimeFromUnixMillisecond returns time from Unix epoch time in milliseconds.
func TimeFromUnixMillisecond(unixMs int64) time.Time {
	return time.UnixMilli(unixMs)
}
