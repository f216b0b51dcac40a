// Package logger provides leveled logging for the docqa CLI.
// Debug and info messages are printed only in verbose mode (--verbose);
// warnings and errors are always printed. Output goes to stderr so that
// streamed answers on stdout stay clean.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.RWMutex
	verbose bool
	base    = newBase(os.Stderr)
)

// Fields is a set of structured key/value pairs attached to a log line.
type Fields = logrus.Fields

func newBase(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&lineFormatter{})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// lineFormatter renders entries as "[LEVEL] message key=value ...".
type lineFormatter struct{}

// Format implements logrus.Formatter.
func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if section, ok := e.Data["section"]; ok {
		fmt.Fprintf(&b, "\n=== %v ===\n", section)
		return b.Bytes(), nil
	}
	fmt.Fprintf(&b, "[%s] %s", levelTag(e.Level), e.Message)
	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelTag(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(l.String())
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.WarnLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base.SetOutput(w)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	base.Debugf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	if !IsVerbose() {
		return
	}
	base.WithField("section", name).Info("")
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	base.Infof(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	base.Warnf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	base.Errorf(format, args...)
}

// WithFields returns an entry carrying structured fields.
func WithFields(f Fields) *logrus.Entry {
	return base.WithFields(f)
}

// WithUser returns an entry tagged with the user id.
func WithUser(userID string) *logrus.Entry {
	return base.WithField("user", userID)
}
