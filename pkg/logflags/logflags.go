package logflags

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var walk = false
var callsite = false
var depot = false
var config = false

var logOut io.WriteCloser

// textFormatterInstance is shared by every default logger so that the
// output of all components lines up.
var textFormatterInstance = &textFormatter{}

func makeLogger(level logrus.Level, fields Fields) Logger {
	if lf := loggerFactory; lf != nil {
		return lf(level, fields, logOut)
	}
	l := logrus.New()
	l.Formatter = textFormatterInstance
	l.Level = level
	if logOut != nil {
		l.Out = logOut
	}
	return entry{l.WithFields(logrus.Fields(fields))}
}

func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if flag {
		return makeLogger(logrus.DebugLevel, fields)
	}
	return makeLogger(logrus.ErrorLevel, fields)
}

// Walk returns true if the frame chain walker should log why a walk ended.
func Walk() bool {
	return walk
}

// WalkLogger returns a logger for the frame chain walker.
func WalkLogger() Logger {
	return makeFlaggableLogger(walk, Fields{"layer": "fpstack"})
}

// Callsite returns true if return address verification should be logged.
func Callsite() bool {
	return callsite
}

// CallsiteLogger returns a logger for the callsite package.
func CallsiteLogger() Logger {
	return makeFlaggableLogger(callsite, Fields{"layer": "callsite"})
}

// Depot returns true if the backtrace depot should log stored traces.
func Depot() bool {
	return depot
}

// DepotLogger returns a logger for the depot package.
func DepotLogger() Logger {
	return makeFlaggableLogger(depot, Fields{"layer": "depot"})
}

// Config returns true if configuration loading should be logged.
func Config() bool {
	return config
}

// ConfigLogger returns a logger for the config package.
func ConfigLogger() Logger {
	return makeFlaggableLogger(config, Fields{"layer": "config"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets component flags based on the contents of logstr.
// If logDest is not empty logs will be redirected to the file descriptor or
// file path specified by logDest.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "fpstack-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %w", err)
			}
			logOut = fh
		}
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if logOut != nil {
		log.SetOutput(logOut)
	}
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "walk"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch strings.TrimSpace(logcmd) {
		case "walk":
			walk = true
		case "callsite":
			callsite = true
		case "depot":
			depot = true
		case "config":
			config = true
		}
	}
	return nil
}

// Close closes the logger output, if it was redirected by Setup.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

// textFormatter is a simplified version of logrus.TextFormatter that
// doesn't make logs unreadable on a terminal by adding colours.
type textFormatter struct{}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s ", entry.Time.Format("2006-01-02T15:04:05Z07:00"), strings.ToLower(entry.Level.String()))
	if layer, ok := entry.Data["layer"]; ok {
		fmt.Fprintf(&b, "layer=%v ", layer)
	}
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "layer" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v ", k, entry.Data[k])
	}
	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
