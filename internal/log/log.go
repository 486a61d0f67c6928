package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu       sync.Mutex
	logger   = stdlog.New(os.Stderr, "", 0)
	minLevel = LevelInfo
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput redirects log output; used by tests and by the sync report to
// capture progress lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = stdlog.New(w, "", 0)
}

func Debug(msg string, kv ...any) {
	emit(LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	emit(LevelInfo, msg, kv...)
}

func Warn(msg string, kv ...any) {
	emit(LevelWarn, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend the error into the key-value list.
	extended := append([]any{"err", err}, kv...)
	emit(LevelError, msg, extended...)
}

func emit(level Level, msg string, kv ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled(level) {
		return
	}

	// 2025-01-01T00:00:00Z [LEVEL] msg key=value ...
	line := time.Now().Format(time.RFC3339) + " [" + string(level) + "] " + msg
	if len(kv) > 0 {
		line += formatKVs(kv...)
	}
	logger.Println(line)
}

func enabled(level Level) bool {
	rank := func(l Level) int {
		switch l {
		case LevelDebug:
			return 0
		case LevelInfo:
			return 1
		case LevelWarn:
			return 2
		default:
			return 3
		}
	}
	return rank(level) >= rank(minLevel)
}

func formatKVs(kv ...any) string {
	out := ""
	// kv comes in pairs: key, value, key, value, ...
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out += " " + key + "=" + fmt.Sprint(kv[i+1])
	}
	// An odd trailing argument is ignored.
	return out
}
