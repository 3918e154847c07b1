// Package logsink provides the process-wide dual-write log sink used by the
// engine: every line goes to a rotated file (when a path has been set) and
// to a platform sink the host can wire to its own log facility. Both writes
// happen under a single lock so SetPath can safely swap the file core out
// from under concurrent log calls.
package logsink

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// PlatformSink receives every log line in addition to the file sink. The FFI
// shim wires this to the host's logging facility (logcat, NSLog, ...); a
// pure Go caller gets a stderr-backed default.
type PlatformSink func(level string, msg string)

var (
	mu       sync.RWMutex
	logger   = zap.New(zapcore.NewTee(platformCore(defaultPlatformSink)))
	platform = defaultPlatformSink
	filePath string
)

func defaultPlatformSink(level, msg string) {
	os.Stderr.WriteString("[" + level + "] " + msg + "\n")
}

// SetPlatformSink replaces the platform sink every log line is also written
// to. Passing nil restores the stderr default.
func SetPlatformSink(sink PlatformSink) {
	if sink == nil {
		sink = defaultPlatformSink
	}

	mu.Lock()
	defer mu.Unlock()

	platform = sink
	rebuild()
}

// SetPath opens path for append and dual-writes subsequent log lines there
// in addition to the platform sink. An empty path stops writing to any
// prior file and leaves only the platform sink active; the prior file's
// handle is dropped but not explicitly closed.
func SetPath(path string) error {
	mu.Lock()
	defer mu.Unlock()

	filePath = path
	rebuild()

	return nil
}

// rebuild must be called with mu held.
func rebuild() {
	cores := []zapcore.Core{platformCore(platform)}

	if filePath != "" {
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   false,
		})
		encoder := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(encoder, writer, zapcore.DebugLevel))
	}

	logger = zap.New(zapcore.NewTee(cores...))
}

func platformCore(sink PlatformSink) zapcore.Core {
	return &sinkCore{sink: sink, LevelEnabler: zapcore.DebugLevel}
}

// sinkCore is a minimal zapcore.Core that forwards every entry's rendered
// level and message to a PlatformSink, skipping zap's own encoders since the
// platform side (logcat, NSLog, ...) wants plain strings.
type sinkCore struct {
	zapcore.LevelEnabler
	sink PlatformSink
}

func (c *sinkCore) With(_ []zapcore.Field) zapcore.Core { return c }

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	c.sink(ent.Level.CapitalString(), ent.Message)
	return nil
}

func (c *sinkCore) Sync() error { return nil }

// Info, Warn, and Error log a dual-written line at the given level.
func Info(msg string, args ...any)  { log(zap.InfoLevel, msg, args...) }
func Warn(msg string, args ...any)  { log(zap.WarnLevel, msg, args...) }
func Error(msg string, args ...any) { log(zap.ErrorLevel, msg, args...) }
func Debug(msg string, args ...any) { log(zap.DebugLevel, msg, args...) }

func log(lvl zapcore.Level, msg string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if ce := logger.Check(lvl, sprintfCompat(msg, args...)); ce != nil {
		ce.Write()
	}
}

// sprintfCompat keeps call sites terse (log.Info("loaded %s", path)) without
// pulling every component over to zap's structured field API.
func sprintfCompat(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
