package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// parseZerologLevel converts a string log level to zerolog.Level.
func parseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the zerolog logger used by the database and influx
// components. It writes console format with colors to stdout, without
// colors to the given file, and GELF to graylog when enabled. A non-nil
// hook is attached to stamp runtime fields onto every event.
//
// A gelf connection failure does not prevent logger construction; the
// logger is returned alongside the error.
func NewZerolog(file io.Writer, hook zerolog.Hook) (zerolog.Logger, error) {
	zerolog.SetGlobalLevel(parseZerologLevel(viper.GetString("logLevel")))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		// write console format with colors to console
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}
	if file != nil {
		// write console format without colors to file
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	var gelfErr error
	if viper.GetBool("graylog.enabled") {
		gw, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			gelfErr = err
		} else {
			writers = append(writers, gw)
		}
	}

	mlw := zerolog.MultiLevelWriter(writers...)

	logger := zerolog.New(mlw).With().Timestamp().Logger()
	if hook != nil {
		logger = logger.Hook(hook)
	}

	return logger, gelfErr
}

// NewSampledLogger derives a burst-sampled logger for hot paths. It
// allows 5 entries per 10 seconds, then samples 1 in 100.
func NewSampledLogger(base zerolog.Logger) zerolog.Logger {
	return base.With().Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}
