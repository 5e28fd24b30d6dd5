package main

import (
	"log/slog"
	"os"

	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/pflag"
)

// buildLogger writes colored text to stderr and, with --log-file, JSON to
// that file as well.  The returned function closes the file.
func buildLogger(flags *pflag.FlagSet) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			AddSource:  false,
			TimeFormat: "15:04:05",
		}))

	closeFn := func() {}
	if logPath, _ := flags.GetString("log-file"); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closeFn = func() { f.Close() }
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}
