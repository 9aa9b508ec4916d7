package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level %q"
	unsupportedLogFormatTemplateConstant = "unsupported log format %q"
	logTimeKeyConstant                   = "timestamp"
	logMessageKeyConstant                = "message"
	logLevelKeyConstant                  = "level"
	logCallerKeyConstant                 = "caller"
)

// LogLevel enumerates supported diagnostic levels.
type LogLevel string

// Supported log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported log encodings.
type LogFormat string

// Supported log formats.
const (
	LogFormatStructured LogFormat = "structured"
	LogFormatConsole    LogFormat = "console"
)

// LoggerOutputs groups the diagnostic logger with the human-facing console logger.
type LoggerOutputs struct {
	DiagnosticLogger *zap.Logger
	ConsoleLogger    *zap.Logger
}

// LoggerFactory builds zap loggers writing to standard error.
type LoggerFactory struct{}

// NewLoggerFactory constructs a LoggerFactory.
func NewLoggerFactory() LoggerFactory {
	return LoggerFactory{}
}

// CreateLoggerOutputs builds loggers for the requested level and format.
// Structured output emits JSON diagnostics and silences the console logger.
func (factory LoggerFactory) CreateLoggerOutputs(logLevel LogLevel, logFormat LogFormat) (LoggerOutputs, error) {
	zapLevel, levelError := resolveZapLevel(logLevel)
	if levelError != nil {
		return LoggerOutputs{}, levelError
	}

	standardErrorSink := zapcore.Lock(zapcore.AddSync(NewFlushingWriter(os.Stderr)))

	switch LogFormat(strings.ToLower(strings.TrimSpace(string(logFormat)))) {
	case LogFormatStructured:
		encoderConfiguration := zap.NewProductionEncoderConfig()
		encoderConfiguration.TimeKey = logTimeKeyConstant
		encoderConfiguration.MessageKey = logMessageKeyConstant
		encoderConfiguration.LevelKey = logLevelKeyConstant
		encoderConfiguration.CallerKey = logCallerKeyConstant
		encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		diagnosticCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfiguration), standardErrorSink, zapLevel)
		return LoggerOutputs{
			DiagnosticLogger: zap.New(diagnosticCore, zap.AddCaller()),
			ConsoleLogger:    zap.NewNop(),
		}, nil
	case LogFormatConsole:
		encoderConfiguration := zapcore.EncoderConfig{
			MessageKey:  logMessageKeyConstant,
			LevelKey:    logLevelKeyConstant,
			EncodeLevel: zapcore.CapitalLevelEncoder,
			LineEnding:  zapcore.DefaultLineEnding,
		}
		consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfiguration), standardErrorSink, zapLevel)
		consoleLogger := zap.New(consoleCore)
		return LoggerOutputs{
			DiagnosticLogger: consoleLogger,
			ConsoleLogger:    consoleLogger,
		}, nil
	default:
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogFormatTemplateConstant, logFormat)
	}
}

func resolveZapLevel(logLevel LogLevel) (zapcore.Level, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(string(logLevel)))) {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InvalidLevel, fmt.Errorf(unsupportedLogLevelTemplateConstant, logLevel)
	}
}
