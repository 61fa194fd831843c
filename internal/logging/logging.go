// Package logging routes the standard logger into append-only files.
//
// Operational events go to stdout and <dir>/app.log. Recovered panics and
// other uncaught failures go to <dir>/exceptions.log through the Exceptions
// logger, and are mirrored to the operational log as a one-line notice.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
)

const (
	appLogName       = "app.log"
	exceptionLogName = "exceptions.log"
)

type Files struct {
	app        *os.File
	exceptions *os.File
	Exceptions *log.Logger
}

// Setup opens both log files under dir and points the default logger at
// stdout plus app.log.
func Setup(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}

	app, err := openAppend(filepath.Join(dir, appLogName))
	if err != nil {
		return nil, err
	}

	exceptions, err := openAppend(filepath.Join(dir, exceptionLogName))
	if err != nil {
		app.Close()
		return nil, err
	}

	log.SetOutput(io.MultiWriter(os.Stdout, app))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return &Files{
		app:        app,
		exceptions: exceptions,
		Exceptions: log.New(io.MultiWriter(os.Stderr, exceptions), "", log.LstdFlags|log.Lmicroseconds),
	}, nil
}

// Discard returns a Files value that writes exceptions nowhere. Used when
// file logging is unavailable and by tests.
func Discard() *Files {
	return &Files{Exceptions: log.New(io.Discard, "", 0)}
}

// Panic records a recovered value with its stack trace.
func (f *Files) Panic(where string, recovered interface{}) {
	f.Exceptions.Printf("panic in %s: %v\n%s", where, recovered, debug.Stack())
	log.Printf("✗ panic in %s: %v (see %s)", where, recovered, exceptionLogName)
}

func (f *Files) Close() {
	if f.app != nil {
		f.app.Close()
	}
	if f.exceptions != nil {
		f.exceptions.Close()
	}
}

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
