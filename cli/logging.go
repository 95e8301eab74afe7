package cli

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adbsync/adbsync/internal/logging"
)

//nolint:gochecknoglobals
var logLevels = []string{"debug", "info", "warning", "error"}

type loggingFlags struct {
	logLevel     string
	forceColor   bool
	disableColor bool
}

func (c *loggingFlags) setup(app *kingpin.Application) {
	app.Flag("log-level", "Console log level").Default("info").EnumVar(&c.logLevel, logLevels...)
	app.Flag("force-color", "Force color output").Hidden().Envar("ADBSYNC_FORCE_COLOR").BoolVar(&c.forceColor)
	app.Flag("disable-color", "Disable color output").Hidden().Envar("ADBSYNC_DISABLE_COLOR").BoolVar(&c.disableColor)
}

func (c *loggingFlags) colorEnabled() bool {
	if c.forceColor {
		return true
	}

	if c.disableColor {
		return false
	}

	return isatty.IsTerminal(os.Stderr.Fd())
}

func (a *App) loggerFactory() logging.LoggerFactory {
	levelEncoder := zapcore.CapitalLevelEncoder
	if a.colorEnabled() {
		levelEncoder = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:        zapcore.OmitKey,
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      zapcore.OmitKey,
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "M",
			StacktraceKey:  zapcore.OmitKey,
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    levelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		}),
		zapcore.Lock(zapcore.AddSync(a.stderrWriter)),
		logLevelFromFlag(a.logLevel),
	)

	root := zap.New(core).Sugar()

	return func(module string) logging.Logger {
		return root.Named(module)
	}
}

func logLevelFromFlag(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
