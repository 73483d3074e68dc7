package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/reckeep/siser"
	"github.com/toon-format/toon-go"
)

var (
	logFile    *WriteDaily
	eventsFile *WriteDaily

	// stdout is reserved for command output, logs go to stderr by default
	console io.Writer = os.Stderr
	mu      sync.Mutex

	// if true, Verbosef() will log messages
	Verbose bool
)

// WriteDaily appends to a file named after today's date (YYYY-MM-DD.txt) in Dir
type WriteDaily struct {
	Dir  string
	day  string
	file *os.File
	mu   sync.Mutex
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

// Write appends d to today's file, opening a new file if the day changed.
// it's safe to call on nil receiver
func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	if w.file != nil && w.day != today {
		if err := w.close(); err != nil {
			return err
		}
	}
	if w.file == nil {
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return err
		}
		path := filepath.Join(w.Dir, today+".txt")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w.file = f
		w.day = today
	}
	_, err := w.file.Write(d)
	return err
}

func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.day = ""
	return err
}

// Close syncs and closes the current file
// it's safe to call on nil receiver
func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Sync()
	}
	return w.close()
}

type Config struct {
	// directory where log files are stored, in "log" and "events" sub-directories
	// if empty, nothing is written to files
	Dir string
	// where Logf() prints, os.Stderr if nil
	Console io.Writer
}

// Init initializes the logging system
// log files are created lazily, on first write
func Init(config *Config) {
	mu.Lock()
	defer mu.Unlock()
	console = os.Stderr
	if config.Console != nil {
		console = config.Console
	}
	logFile = nil
	eventsFile = nil
	if config.Dir == "" {
		return
	}
	logFile = NewWriteDaily(filepath.Join(config.Dir, "log"))
	eventsFile = NewWriteDaily(filepath.Join(config.Dir, "events"))
}

// Close flushes and closes log files
func Close() {
	mu.Lock()
	defer mu.Unlock()
	logFile.Close()
	eventsFile.Close()
	logFile = nil
	eventsFile = nil
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	mu.Lock()
	w, f := console, logFile
	mu.Unlock()
	fmt.Fprint(w, s)
	f.Write([]byte(s))
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstack(skip int) string {
	var callers [32]uintptr
	n := runtime.Callers(skip+2, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
		if !more {
			break
		}
	}
	return strings.Join(cs, "\n")
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(1)
	Logf("%s\n%s\n", s, cs)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%v", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

func panicIf(cond bool, msg string) {
	if cond {
		panic(msg)
	}
}

// keyToStr converts event key to string
// panics if v is of complex type
func keyToStr(v any) string {
	kind := reflect.TypeOf(v).Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer, reflect.Func:
		panic(fmt.Sprintf("keyToStr: key is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// FormatEvent returns an event as written to events log: a siser block
// named name with timestamp t, with vals encoded in toon format as data.
// vals are key, value pairs, keys keep their order
func FormatEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	panicIf(n%2 != 0, "vals must be key, value pairs")
	var d []byte
	if n > 0 {
		fields := make([]toon.Field, 0, n/2)
		for i := 0; i < n; i += 2 {
			fields = append(fields, toon.Field{Key: keyToStr(vals[i]), Value: vals[i+1]})
		}
		var err error
		d, err = toon.Marshal(toon.NewObject(fields...))
		if err != nil {
			return nil, err
		}
	}
	return siser.MarshalLine(name, t.UTC(), d, nil), nil
}

// Event logs event with a name and key, value pairs to events log
// It's a no-op if Init() was not called with Dir
func Event(name string, vals ...any) {
	mu.Lock()
	f := eventsFile
	mu.Unlock()
	if f == nil {
		return
	}
	d, err := FormatEvent(name, time.Now(), vals...)
	if IfErrf(err, "log.Event('%s') failed with '%s'", name, err) {
		return
	}
	IfErrf(f.Write(d))
}
