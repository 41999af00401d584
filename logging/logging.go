// Package logging is the log sink shared by every component. Info and error
// lines are always written; debug lines only when debug output is enabled.
package logging

import (
	"io"
	"log/slog"
	"os"
)

type Sink struct {
	l     *slog.Logger
	debug bool
}

// New writes text lines to w. Debug lines are dropped unless debug is set.
func New(w io.Writer, debug bool) *Sink {
	lvl := slog.LevelInfo
	if debug {
		lvl = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return &Sink{l: slog.New(h), debug: debug}
}

// Stdout is the default sink used by the binary.
func Stdout(debug bool) *Sink {
	return New(os.Stdout, debug)
}

// Discard drops everything.
func Discard() *Sink {
	return &Sink{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (s *Sink) DebugEnabled() bool {
	return s.debug
}

func (s *Sink) Info(msg string, args ...any) {
	s.l.Info(msg, args...)
}

func (s *Sink) Debug(msg string, args ...any) {
	if !s.debug {
		return
	}
	s.l.Debug(msg, args...)
}

func (s *Sink) Error(msg string, args ...any) {
	s.l.Error(msg, args...)
}

// With returns a sink that adds args to every line.
func (s *Sink) With(args ...any) *Sink {
	return &Sink{l: s.l.With(args...), debug: s.debug}
}
