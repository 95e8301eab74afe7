package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type printfWriter struct {
	printf func(msg string, args ...interface{})
	prefix string
}

func (w printfWriter) Write(p []byte) (int, error) {
	n := len(p)

	for len(p) > 0 && p[len(p)-1] == '\n' {
		p = p[:len(p)-1]
	}

	w.printf("%v", w.prefix+string(p))

	return n, nil
}

func (w printfWriter) Sync() error { return nil }

// Printf returns a logger that uses a given printf-style function to print log output.
func Printf(printf func(msg string, args ...interface{}), prefix string) Logger {
	return PrintfLevel(printf, prefix, zapcore.DebugLevel)
}

// PrintfLevel returns a logger that uses a given printf-style function to print
// log output for logs of a given level or above.
func PrintfLevel(printf func(msg string, args ...interface{}), prefix string, level zapcore.Level) Logger {
	writer := printfWriter{printf, prefix}

	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
				TimeKey:        zapcore.OmitKey,
				LevelKey:       zapcore.OmitKey,
				NameKey:        zapcore.OmitKey,
				CallerKey:      zapcore.OmitKey,
				FunctionKey:    zapcore.OmitKey,
				MessageKey:     "M",
				StacktraceKey:  "S",
				LineEnding:     zapcore.DefaultLineEnding,
				EncodeLevel:    zapcore.CapitalLevelEncoder,
				EncodeTime:     zapcore.ISO8601TimeEncoder,
				EncodeDuration: zapcore.StringDurationEncoder,
				EncodeCaller:   zapcore.ShortCallerEncoder,
			}),
			writer,
			level,
		),
	).Sugar()
}

// PrintfFactory returns LoggerFactory that uses a given printf-style function
// to print log output.
func PrintfFactory(printf func(msg string, args ...interface{})) LoggerFactory {
	return func(module string) Logger {
		return Printf(printf, "["+module+"] ")
	}
}
