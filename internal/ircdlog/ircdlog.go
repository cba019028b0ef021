// Package ircdlog extends Go's logging functionality to allow for multiple
// concurrently registered loggers, each with their own level and filter
// set. Call AddLogger to register a destination, then use the
// package-level functions (Debug, Info, Warn, Error, Fatal and their
// *ln variants) to fan a message out to every registered logger at or
// above its level.
//
// Link takes an explicit link identifier instead of deriving the
// call site, so a message can be attributed to the peer connection
// that produced it (see Link Socket's "link identifier string for
// logging" in the data model).
package ircdlog

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	golog "log"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var (
	LevelFlag = flag.String("level", "warn", "set log level: [debug, info, warn, error, fatal]")
	Verbose   = flag.Bool("v", true, "log on stderr")
	File      = flag.String("logfile", "", "also log to file")
)

var (
	loggers = make(map[string]*logger)
	logLock sync.RWMutex
)

// AddLogger registers a logger named name that writes to output at or
// above level. color enables ANSI coloring; AddLogger uses it as given
// (Init passes false on Windows).
func AddLogger(name string, output io.Writer, level Level, color bool) {
	logLock.Lock()
	defer logLock.Unlock()

	loggers[name] = &logger{golog.New(output, "", golog.LstdFlags), level, color, nil}
}

// DelLogger removes a logger previously registered with AddLogger.
func DelLogger(name string) {
	logLock.Lock()
	defer logLock.Unlock()

	delete(loggers, name)
}

func Loggers() []string {
	logLock.RLock()
	defer logLock.RUnlock()

	var ret []string
	for k := range loggers {
		ret = append(ret, k)
	}
	return ret
}

// WillLog reports whether logging at level would reach any registered
// logger. Useful to skip building an expensive message body.
func WillLog(level Level) bool {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, v := range loggers {
		if v.Level <= level {
			return true
		}
	}
	return false
}

func SetLevel(name string, level Level) error {
	logLock.Lock()
	defer logLock.Unlock()

	if loggers[name] == nil {
		return errors.New("logger does not exist")
	}
	loggers[name].Level = level
	return nil
}

func GetLevel(name string) (Level, error) {
	logLock.RLock()
	defer logLock.RUnlock()

	if loggers[name] == nil {
		return -1, errors.New("logger does not exist")
	}
	return loggers[name].Level, nil
}

// LogAll reads i line by line, logging each non-blank line at level
// under name, until EOF. Starts a goroutine and returns immediately.
func LogAll(i io.Reader, level Level, name string) {
	go func() {
		r := bufio.NewReader(i)
		for {
			d, err := r.ReadString('\n')
			if d := strings.TrimSpace(d); d != "" {
				logf(level, name, "%s", d)
			}
			if level == FATAL {
				os.Exit(1)
			}
			if err != nil {
				break
			}
		}
	}()
}

// Init configures the package-level loggers from LevelFlag/Verbose/File.
// Call after flag.Parse.
func Init() {
	level, err := ParseLevel(*LevelFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	color := runtime.GOOS != "windows"

	if *Verbose {
		AddLogger("stdio", os.Stderr, level, color)
	}

	if *File != "" {
		if err := os.MkdirAll(filepath.Dir(*File), 0755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logfile, err := os.OpenFile(*File, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		AddLogger("file", logfile, level, false)
	}
}

func AddFilter(name, filter string) error {
	logLock.Lock()
	defer logLock.Unlock()

	l, ok := loggers[name]
	if !ok {
		return fmt.Errorf("no such logger %v", name)
	}
	for _, f := range l.filters {
		if f == filter {
			return nil
		}
	}
	l.filters = append(l.filters, filter)
	return nil
}

func DelFilter(name, filter string) error {
	logLock.Lock()
	defer logLock.Unlock()

	l, ok := loggers[name]
	if !ok {
		return fmt.Errorf("no such logger %v", name)
	}
	for i, f := range l.filters {
		if f == filter {
			l.filters = append(l.filters[:i], l.filters[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("filter %v does not exist", filter)
}

func logf(level Level, link, format string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, l := range loggers {
		if l.Level <= level {
			l.log(level, link, format, arg...)
		}
	}
}

func logln(level Level, link string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, l := range loggers {
		if l.Level <= level {
			l.logln(level, link, arg...)
		}
	}
}

func Debug(format string, arg ...interface{}) { logf(DEBUG, "", format, arg...) }
func Info(format string, arg ...interface{})  { logf(INFO, "", format, arg...) }
func Warn(format string, arg ...interface{})  { logf(WARN, "", format, arg...) }
func Error(format string, arg ...interface{}) { logf(ERROR, "", format, arg...) }

func Fatal(format string, arg ...interface{}) {
	logf(FATAL, "", format, arg...)
	os.Exit(1)
}

func Debugln(arg ...interface{}) { logln(DEBUG, "", arg...) }
func Infoln(arg ...interface{})  { logln(INFO, "", arg...) }
func Warnln(arg ...interface{})  { logln(WARN, "", arg...) }
func Errorln(arg ...interface{}) { logln(ERROR, "", arg...) }

func Fatalln(arg ...interface{}) {
	logln(FATAL, "", arg...)
	os.Exit(1)
}

// Link logs a message at level attributed to the given link identifier
// instead of the caller's file:line.
func Link(level Level, link, format string, arg ...interface{}) {
	logf(level, link, format, arg...)
}
