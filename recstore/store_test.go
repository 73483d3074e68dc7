package recstore

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func newTestStore(t *testing.T, numericField string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "store.txt")
	s, err := New(Config{
		Path:         path,
		NumericField: numericField,
	})
	assert.NoError(t, err)
	return s
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	return string(d)
}

func TestNewDefaults(t *testing.T) {
	s, err := New(Config{})
	assert.NoError(t, err)
	assert.Equal(t, DefaultPath, s.Path())
	assert.Equal(t, DefaultFields, s.Codec().Schema().Fields())
	assert.Equal(t, "", s.NumericField())
	assert.Equal(t, DefaultFields, NewCodec(nil).Schema().Fields())

	_, err = New(Config{NumericField: "size"})
	assert.Error(t, err)
}

func TestLoadAllMissingFile(t *testing.T) {
	s := newTestStore(t, "")
	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.NotNil(t, records)
	assert.Equal(t, 0, len(records))
}

func TestInitializeTwice(t *testing.T) {
	s := newTestStore(t, "")
	for i := 0; i < 2; i++ {
		err := s.Initialize()
		assert.NoError(t, err)
		records, err := s.LoadAll()
		assert.NoError(t, err)
		assert.Equal(t, 0, len(records))
		assert.Equal(t, "", readFile(t, s.Path()))
	}
}

func TestInitializeTruncates(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Append(Record{"file": "a"}))
	assert.NoError(t, s.Initialize())
	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(records))
}

func TestAppendAndLoad(t *testing.T) {
	s := newTestStore(t, "")
	r1 := Record{"file": "a.txt", "rule": "r1", "result": "pass"}
	r2 := Record{"file": "b.txt", "rule": "r2", "result": "fail"}

	// append creates directory and file
	assert.NoError(t, s.Append(r1))
	assert.NoError(t, s.Append(r2))

	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, []Record{r1, r2}, records)

	exp := "file=a.txt|rule=r1|result=pass\nfile=b.txt|rule=r2|result=fail\n"
	assert.Equal(t, exp, readFile(t, s.Path()))
}

func TestAppendMany(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Initialize())
	n := 200
	for i := 0; i < n; i++ {
		rec, err := s.Codec().ParseFields([]string{fmt.Sprintf("file=f%d.txt", i), "result=ok"})
		assert.NoError(t, err)
		assert.NoError(t, s.Append(rec))
	}
	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, n, len(records))
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("f%d.txt", i), rec["file"])
		assert.Equal(t, "", rec["rule"])
	}
}

func TestLoadAllSkipsBlankLines(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Initialize())
	d := "\nfile=a|rule=r1|result=pass\n   \n\t\nfile=b\n\n"
	assert.NoError(t, os.WriteFile(s.Path(), []byte(d), 0644))
	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, []Record{
		{"file": "a", "rule": "r1", "result": "pass"},
		{"file": "b"},
	}, records)
}

func TestLoadAllNoTrailingNewline(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Initialize())
	assert.NoError(t, os.WriteFile(s.Path(), []byte("file=a\nfile=b"), 0644))
	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, []Record{{"file": "a"}, {"file": "b"}}, records)
}

func TestLoadAllMalformed(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Initialize())
	d := "file=a|rule=r1|result=pass\nfile=a|badpart\n"
	assert.NoError(t, os.WriteFile(s.Path(), []byte(d), 0644))
	records, err := s.LoadAll()
	assert.Nil(t, records)
	assertIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadAllLongLine(t *testing.T) {
	s := newTestStore(t, "")
	long := make([]byte, 128*1024)
	for i := range long {
		long[i] = 'a' + byte(i%26)
	}
	rec := Record{"file": string(long), "rule": "r", "result": "x"}
	assert.NoError(t, s.Append(rec))
	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, []Record{rec}, records)
}

func TestAppendPathConflict(t *testing.T) {
	dir := t.TempDir()
	// a file where the store directory should be
	blocker := filepath.Join(dir, "data")
	assert.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	s, err := New(Config{Path: filepath.Join(blocker, "store.txt")})
	assert.NoError(t, err)

	err = s.Append(Record{"file": "a"})
	assertIs(t, err, ErrIO)
	err = s.Initialize()
	assertIs(t, err, ErrIO)
}

func TestLoadAllDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{Path: dir})
	assert.NoError(t, err)
	_, err = s.LoadAll()
	assertIs(t, err, ErrIO)
}

func TestSummarize(t *testing.T) {
	s := newTestStore(t, "")
	assert.Equal(t, "count=0", s.Summarize(nil))
	records := []Record{{"file": "a"}, {"file": "b"}}
	assert.Equal(t, "count=2", s.Summarize(records))
}

func TestSummarizeNumericField(t *testing.T) {
	s := newTestStore(t, "result")
	records := []Record{
		{"result": "10"},
		{"result": "-3"},
		{"result": "abc"},
		{"file": "no result"},
		{"result": ""},
		{"result": "5"},
	}
	assert.Equal(t, "count=6, result_total=12", s.Summarize(records))
	assert.Equal(t, "count=0, result_total=0", s.Summarize(nil))
}

func TestScenario(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Initialize())
	rec, err := s.Codec().ParseFields([]string{"file=a.txt", "rule=r1", "result=pass"})
	assert.NoError(t, err)
	assert.NoError(t, s.Append(rec))

	records, err := s.LoadAll()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(records))
	assert.Equal(t, "file=a.txt|rule=r1|result=pass", s.Codec().Encode(records[0]))
	assert.Equal(t, "count=1", s.Summarize(records))
}
