package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup builds the process logger: human-readable text on console, plus a
// rotating JSON log file when file is not empty. The returned close function
// releases the log file.
func Setup(console io.Writer, level, file string) (*slog.Logger, func() error, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	handlers := []slog.Handler{slog.NewTextHandler(console, opts)}
	closeFn := func() error { return nil }

	if file != "" {
		logFile := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(logFile, opts))
		closeFn = logFile.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}
