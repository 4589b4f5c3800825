package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // named zones must resolve on minimal hosts

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type CallerDisplayMode int

const (
	// CallerShort shows only filename:line (error.go:116)
	CallerShort CallerDisplayMode = iota
	// CallerMedium shows package/filename:line (middleware/error.go:116)
	CallerMedium
	// CallerFull shows full path
	CallerFull
)

// Defaults
const (
	DefaultTimezone  = "America/Sao_Paulo"
	DefaultAuditFile = "./logs/audit.log"

	auditTimeLayout = "2006-01-02T15:04:05.000-07:00"
)

// ErrAuditUnavailable is returned by Init when the audit sink cannot be
// opened and Options.AuditRequired is set.
var ErrAuditUnavailable = errors.New("audit log unavailable")

// Options configures the process-wide logging pipeline.
type Options struct {
	Development   bool
	Level         string
	AuditFile     string
	AuditRequired bool
	Timezone      string
	CallerMode    CallerDisplayMode

	// Compress gzips rotated audit files.
	Compress bool

	// Console receives the console core output. Defaults to stdout.
	Console zapcore.WriteSyncer
}

// Bootstrap owns the logging configuration of the process. Init attaches the
// sinks at most once; later calls return the logger built by the first call.
type Bootstrap struct {
	opts Options

	once   sync.Once
	logger *zap.Logger
	err    error

	level    zap.AtomicLevel
	location *time.Location
	audit    *lumberjack.Logger
}

// NewBootstrap creates an uninitialized logging bootstrap.
func NewBootstrap(opts Options) *Bootstrap {
	if opts.AuditFile == "" {
		opts.AuditFile = DefaultAuditFile
	}
	if opts.Timezone == "" {
		opts.Timezone = DefaultTimezone
	}
	if opts.Console == nil {
		opts.Console = zapcore.Lock(os.Stdout)
	}
	return &Bootstrap{
		opts:  opts,
		level: zap.NewAtomicLevelAt(parseLevel(opts.Level)),
	}
}

// Init builds the logger: a console core at the configured level and an
// audit core (JSON, rotated file, Info and above) stamped in the configured
// timezone. Safe to call repeatedly; the audit sink is attached only once.
func (b *Bootstrap) Init() (*zap.Logger, error) {
	b.once.Do(func() {
		b.logger, b.err = b.build()
	})
	return b.logger, b.err
}

// Logger returns the initialized logger, or a no-op logger before Init.
func (b *Bootstrap) Logger() *zap.Logger {
	if b.logger == nil {
		return zap.NewNop()
	}
	return b.logger
}

// AuditEnabled reports whether the audit sink is attached.
func (b *Bootstrap) AuditEnabled() bool {
	return b.audit != nil
}

// Location returns the timezone used for audit timestamps.
func (b *Bootstrap) Location() *time.Location {
	if b.location == nil {
		return loadLocation(b.opts.Timezone)
	}
	return b.location
}

func (b *Bootstrap) build() (*zap.Logger, error) {
	b.location = loadLocation(b.opts.Timezone)

	cores := []zapcore.Core{b.consoleCore()}

	auditErr := b.openAudit()
	if auditErr != nil && b.opts.AuditRequired {
		return nil, fmt.Errorf("%w: %v", ErrAuditUnavailable, auditErr)
	}
	if b.audit != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(b.auditEncoderConfig()),
			zapcore.AddSync(b.audit),
			zap.InfoLevel,
		))
	}

	stackLevel := zapcore.DPanicLevel
	if b.opts.Development {
		stackLevel = zapcore.ErrorLevel
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(stackLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	)

	if auditErr != nil {
		logger.Warn("Audit log unavailable, continuing with console logging only",
			zap.String("audit_file", b.opts.AuditFile),
			zap.Error(auditErr),
		)
	}

	logger.Info("Logging initialized",
		SecurityEventField(SecurityEvent{
			Type: EventLoggingInitialized,
			Extra: map[string]any{
				"level":         b.level.Level().String(),
				"audit_enabled": b.audit != nil,
				"timezone":      b.location.String(),
			},
		}),
	)

	return logger, nil
}

func (b *Bootstrap) consoleCore() zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeCaller = b.encodeCaller

	var encoder zapcore.Encoder
	if b.opts.Development {
		encoderConfig.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			// Fixed width level formatting for alignment
			enc.AppendString(fmt.Sprintf("%-5s", level.CapitalString()))
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	return zapcore.NewCore(encoder, b.opts.Console, b.level)
}

func (b *Bootstrap) auditEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = timeEncoderIn(b.location)
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeCaller = b.encodeCaller
	return encoderConfig
}

// openAudit checks the audit file can be written before attaching the
// rotating writer, since lumberjack only opens the file on first write.
func (b *Bootstrap) openAudit() error {
	if err := createLogDir(b.opts.AuditFile); err != nil {
		return err
	}

	f, err := os.OpenFile(b.opts.AuditFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}

	b.audit = &lumberjack.Logger{
		Filename:   b.opts.AuditFile,
		MaxSize:    100, // megabytes
		MaxBackups: 30,
		MaxAge:     90, // days
		Compress:   b.opts.Compress,
		LocalTime:  true,
	}
	return nil
}

// Rotate closes the current audit file and starts a new one.
func (b *Bootstrap) Rotate() error {
	if b.audit == nil {
		return ErrAuditUnavailable
	}
	return b.audit.Rotate()
}

// SetLevel dynamically changes the console log level. The audit sink keeps
// its Info floor.
func (b *Bootstrap) SetLevel(level string) error {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	b.level.SetLevel(zapLevel)
	return nil
}

// GetLevel returns the current console log level
func (b *Bootstrap) GetLevel() string {
	return b.level.Level().String()
}

// Sync flushes any buffered log entries
func (b *Bootstrap) Sync() error {
	if b.logger != nil {
		return b.logger.Sync()
	}
	return nil
}

// Close flushes and releases the audit file.
func (b *Bootstrap) Close() error {
	// stdout sync fails on some terminals; only the audit file matters here
	_ = b.Sync()
	if b.audit != nil {
		return b.audit.Close()
	}
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// loadLocation falls back to a fixed UTC-3 offset when the zone database
// cannot resolve name.
func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

func timeEncoderIn(loc *time.Location) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(auditTimeLayout))
	}
}

// createLogDir creates log directory if it doesn't exist
func createLogDir(logPath string) error {
	dir := filepath.Dir(logPath)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}

	return nil
}

func (b *Bootstrap) encodeCaller(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(formatCallerPath(caller, b.opts.CallerMode))
}

// formatCallerPath formats caller path based on display mode with alignment
func formatCallerPath(caller zapcore.EntryCaller, mode CallerDisplayMode) string {
	fullPath := caller.TrimmedPath()
	var result string

	switch mode {
	case CallerShort:
		parts := strings.Split(fullPath, "/")
		result = parts[len(parts)-1]

	case CallerMedium:
		shortened := strings.TrimPrefix(fullPath, "pkg/")
		shortened = strings.TrimPrefix(shortened, "cmd/")
		shortened = strings.TrimPrefix(shortened, "internal/")

		parts := strings.Split(shortened, "/")
		if len(parts) > 2 {
			result = strings.Join(parts[len(parts)-2:], "/")
		} else {
			result = shortened
		}

	default:
		result = fullPath
	}

	// Apply fixed width formatting for alignment
	const callerWidth = 28
	if len(result) > callerWidth {
		// keep the end part (filename:line)
		result = "..." + result[len(result)-(callerWidth-3):]
	}

	return fmt.Sprintf("%-*s", callerWidth, result)
}
