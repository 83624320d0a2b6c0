// Package logging provides the server's structured logging: JSON lines
// written to a size-rotated log file and mirrored to standard output.
// Retired log generations are kept as numbered, gzip-compressed
// backups next to the live file.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/config"
)

// Level orders log verbosity.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"debug", "info", "warn", "error", "fatal"}

func (l Level) String() string {
	if l < DebugLevel || l > FatalLevel {
		return "info"
	}
	return levelNames[l]
}

// ParseLevel maps a configured level name onto a Level. An empty name
// means InfoLevel.
func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("logging: unknown level %q", raw)
	}
}

// Field is one key/value attribute attached to a log record.
type Field struct {
	Key   string
	Value any
}

// String returns a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int returns an int field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Uint64 returns a uint64 field.
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

// Error returns an error field, rendered as the error's message.
func Error(err error) Field { return Field{Key: "error", Value: err} }

// Logger writes JSON log lines at or above its configured level. Safe
// for concurrent use. Record keys are emitted in a fixed order (ts,
// level, msg, then the fields in call order), so identical calls
// produce identical lines.
type Logger struct {
	level  Level
	mu     sync.Mutex
	file   *rotatingFile // nil when logging to nowhere
	mirror io.Writer     // nil to disable mirroring
}

// New constructs a logger writing to the configured rotating log file
// and mirroring every line to standard output.
func New(cfg config.LoggingConfig) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	file, err := newRotatingFile(cfg)
	if err != nil {
		return nil, err
	}
	return &Logger{level: level, file: file, mirror: os.Stdout}, nil
}

// NewTestLogger returns a logger that discards everything, for tests.
func NewTestLogger() *Logger {
	return &Logger{level: DebugLevel}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

// Fatal logs the message, flushes the log file, and exits the process.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields...)
	_ = l.Sync()
	os.Exit(1)
}

// Sync flushes buffered log output to durable storage.
func (l *Logger) Sync() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Sync()
}

func (l *Logger) log(level Level, msg string, fields ...Field) {
	if l == nil || level < l.level {
		return
	}
	buf := make([]byte, 0, 256)
	buf = append(buf, `{"ts":"`...)
	buf = time.Now().UTC().AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","level":"`...)
	buf = append(buf, level.String()...)
	buf = append(buf, `","msg":`...)
	buf = appendJSON(buf, msg)
	for _, f := range fields {
		buf = append(buf, ',')
		buf = appendJSON(buf, f.Key)
		buf = append(buf, ':')
		if err, ok := f.Value.(error); ok && err != nil {
			buf = appendJSON(buf, err.Error())
		} else {
			buf = appendJSON(buf, f.Value)
		}
	}
	buf = append(buf, '}', '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_, _ = l.file.Write(buf)
	}
	if l.mirror != nil {
		_, _ = l.mirror.Write(buf)
	}
}

func appendJSON(buf []byte, v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(strconv.Quote(fmt.Sprint(v)))
	}
	return append(buf, data...)
}

// rotatingFile appends to one log file until the next write would push
// it past maxBytes, then shifts it into a chain of numbered backups
// (path.1, path.2, ... or path.1.gz when compressing), keeping at most
// maxBackups generations and dropping any older than maxAge. Not
// locked itself: the owning Logger serializes all access.
type rotatingFile struct {
	path       string
	maxBytes   int64
	maxBackups int
	maxAge     time.Duration
	compress   bool
	file       *os.File
	size       int64
}

func newRotatingFile(cfg config.LoggingConfig) (*rotatingFile, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("logging: log path must be set")
	}
	if cfg.MaxSizeMB <= 0 {
		return nil, errors.New("logging: max log size must be positive")
	}
	if cfg.MaxBackups < 0 || cfg.MaxAgeDays < 0 {
		return nil, errors.New("logging: retention limits must be non-negative")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &rotatingFile{
		path:       cfg.Path,
		maxBytes:   int64(cfg.MaxSizeMB) << 20,
		maxBackups: cfg.MaxBackups,
		maxAge:     time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		compress:   cfg.Compress,
		file:       file,
		size:       info.Size(),
	}, nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	if r.size > 0 && r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rotatingFile) Sync() error {
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

func (r *rotatingFile) backup(i int) string {
	name := fmt.Sprintf("%s.%d", r.path, i)
	if r.compress {
		name += ".gz"
	}
	return name
}

func (r *rotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	if r.maxBackups == 0 {
		_ = os.Remove(r.path)
	} else {
		_ = os.Remove(r.backup(r.maxBackups))
		for i := r.maxBackups - 1; i >= 1; i-- {
			_ = os.Rename(r.backup(i), r.backup(i+1))
		}
		if err := r.retire(r.backup(1)); err != nil {
			return err
		}
	}
	r.pruneExpired()
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	r.file = file
	r.size = 0
	return nil
}

// retire moves the just-filled log into the first backup slot,
// compressing it on the way when configured.
func (r *rotatingFile) retire(dst string) error {
	if !r.compress {
		return os.Rename(r.path, dst)
	}
	if err := gzipFile(r.path, dst); err != nil {
		return err
	}
	return os.Remove(r.path)
}

func (r *rotatingFile) pruneExpired() {
	if r.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-r.maxAge)
	for i := 1; i <= r.maxBackups; i++ {
		info, err := os.Stat(r.backup(i))
		if err == nil && info.ModTime().Before(cutoff) {
			_ = os.Remove(r.backup(i))
		}
	}
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}
