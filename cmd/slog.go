package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

func init() {
	level := slog.LevelInfo
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			panic(fmt.Sprintf("invalid log level: %s", s))
		}
	}

	// debug defaults to colored output with source, everything else to JSON
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "json"
		if level == slog.LevelDebug {
			format = "tint"
		}
	}

	slog.SetDefault(slog.New(newLogHandler(os.Stderr, format, level)))
	slog.Debug("logging configured", "format", format, "level", level)
}

func newLogHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	switch format {
	case "tint":
		prefix := modulePrefix()
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			AddSource:  true,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if source, ok := a.Value.Any().(*slog.Source); ok && a.Key == slog.SourceKey {
					source.File = trimSource(source.File, prefix)
				}
				if err, ok := a.Value.Any().(error); ok {
					aErr := tint.Err(err)
					aErr.Key = a.Key
					return aErr
				}
				return a
			},
		})
	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
}

// modulePrefix is "/<last module path element>/", e.g. "/aigifts/".
func modulePrefix() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		parts := strings.Split(info.Main.Path, "/")
		return "/" + parts[len(parts)-1] + "/"
	}
	if wd, err := os.Getwd(); err == nil {
		return "/" + filepath.Base(wd) + "/"
	}
	return "/aigifts/"
}

// trimSource shortens an absolute source path to its module-relative form.
func trimSource(file, prefix string) string {
	if _, rel, ok := strings.Cut(file, prefix); ok {
		return rel
	}
	if idx := strings.LastIndex(file, "/src/"); idx != -1 {
		return file[idx+len("/src/"):]
	}
	return file
}
