// Package monitoring wires the per-package ops/diag/trace log streams to a
// single verbosity level.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logf is the application-level logger used by the command. It defaults to
// log.Printf but may be replaced by SetLogger or Apply.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Level selects which log streams are written.
type Level int

const (
	LevelNone Level = iota
	LevelOps
	LevelDiag
	LevelTrace
)

var levelNames = map[Level]string{
	LevelNone:  "none",
	LevelOps:   "ops",
	LevelDiag:  "diag",
	LevelTrace: "trace",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel parses ops, diag, trace or none.
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return l, nil
		}
	}
	return LevelNone, fmt.Errorf("unknown log level %q (want ops, diag, trace or none)", s)
}

// Writers returns w for every stream enabled at level and nil for the rest.
func Writers(level Level, w io.Writer) (ops, diag, trace io.Writer) {
	if level >= LevelOps {
		ops = w
	}
	if level >= LevelDiag {
		diag = w
	}
	if level >= LevelTrace {
		trace = w
	}
	return ops, diag, trace
}

// LogSetter is a package's SetLogWriters function.
type LogSetter func(ops, diag, trace io.Writer)

// Apply routes every package stream enabled at level to w and points Logf
// at w, or at a no-op when level is LevelNone.
func Apply(level Level, w io.Writer, setters ...LogSetter) {
	ops, diag, trace := Writers(level, w)
	for _, set := range setters {
		set(ops, diag, trace)
	}
	if ops == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(ops, "[depthdust] ", log.LstdFlags|log.Lmicroseconds).Printf)
}
