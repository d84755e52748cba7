package logger

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Terminal colors used by the pretty console format.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// PrettyEncoder is a compact console encoder: colored level, wall-clock time
// and no caller.
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    prettyLevelEncoder,
		EncodeTime:     prettyTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	})
}

func prettyLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(levelTag(level))
}

func levelTag(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return colorCyan + "[DEBUG]" + colorReset
	case zapcore.InfoLevel:
		return colorGreen + "[INFO]" + colorReset
	case zapcore.WarnLevel:
		return colorYellow + "[WARN]" + colorReset
	case zapcore.ErrorLevel:
		return colorRed + "[ERROR]" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorRed + colorBold + "[" + level.CapitalString() + "]" + colorReset
	default:
		return "[" + level.CapitalString() + "]"
	}
}

func prettyTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}
