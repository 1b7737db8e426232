// Package logger provides the node's per-subsystem logging facility.
//
// Every long-running component (ledger, mempool, consensus, gossip, rpc,
// minting) pulls a named Logger from the shared backend instead of calling
// the standard library's log package directly, the same way the teacher's
// subsystem loggers are all created from one backend and only differ by
// tag. The backend is backed by zap so that the output format can switch
// between human-readable console encoding and JSON at startup, per the
// node's RUST_LOG-style environment configuration.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder used by every subsystem logger.
type Format int

const (
	// FormatConsole renders human-readable lines with colorized levels.
	FormatConsole Format = iota
	// FormatJSON renders one JSON object per line, for log shippers.
	FormatJSON
)

// Logger is a leveled, subsystem-tagged logger.
type Logger struct {
	tag  string
	base *zap.SugaredLogger
	atom zap.AtomicLevel
}

var (
	mu         sync.Mutex
	loggers    = map[string]*Logger{}
	sharedAtom = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sharedCore zapcore.Core
)

// Init configures the shared backend. It must be called once during
// startup before any subsystem logger is used; calling it again replaces
// the backend for loggers created afterward.
func Init(format Format, writer *os.File) {
	mu.Lock()
	defer mu.Unlock()

	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	switch format {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	if writer == nil {
		writer = os.Stdout
	}
	sharedCore = zapcore.NewCore(encoder, zapcore.AddSync(writer), sharedAtom)
}

func init() {
	Init(FormatConsole, os.Stdout)
}

// Subsystem returns (creating if necessary) the named logger, e.g.
// "LDGR", "MEMP", "SCPE", "GOSP", "MINT", "RPCS".
func Subsystem(tag string) *Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[tag]; ok {
		return l
	}

	zl := zap.New(sharedCore).Named(tag).Sugar()
	l := &Logger{tag: tag, base: zl, atom: sharedAtom}
	loggers[tag] = l
	return l
}

// SetLevelFromFilter parses a RUST_LOG-style filter string such as
// "info,consensus=debug,gossip=warn" and applies the global component to
// the shared atomic level. Per-subsystem overrides are not wired to
// separate atomic levels in this implementation; the global level is the
// minimum of all terms, mirroring the conservative interpretation of an
// unspecified per-subsystem term. With no parsable term the level is info.
func SetLevelFromFilter(filter string) {
	level := zapcore.InfoLevel
	found := false
	for _, term := range strings.Split(filter, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		parts := strings.SplitN(term, "=", 2)
		levelStr := parts[len(parts)-1]
		if lvl, err := zapcore.ParseLevel(levelStr); err == nil {
			if !found || lvl < level {
				level = lvl
				found = true
			}
		}
	}
	mu.Lock()
	sharedAtom.SetLevel(level)
	mu.Unlock()
}

func (l *Logger) Debugf(format string, args ...interface{})    { l.base.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})     { l.base.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})     { l.base.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})    { l.base.Errorf(format, args...) }
func (l *Logger) Criticalf(format string, args ...interface{}) { l.base.Errorf(format, args...) }

// Sync flushes any buffered log entries. Callers should invoke it during
// orderly shutdown.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// With returns a derived logger with the given key/value pairs attached to
// every subsequent entry, used for example to tag consensus log lines with
// the current slot height.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{tag: l.tag, base: l.base.With(kv...), atom: l.atom}
}

// Fatalf logs the formatted message through l, flushes it, and panics
// with it; reserved for invariant violations that must never occur in a
// correct node.
func Fatalf(l *Logger, format string, args ...interface{}) {
	l.base.Errorf(format, args...)
	_ = l.Sync()
	panic(fmt.Sprintf(format, args...))
}
