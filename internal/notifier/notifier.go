// Package notifier surfaces transient messages: TUI toasts, the log and
// the optional desktop tray.
package notifier

import (
	"errors"

	"github.com/julianstephens/surgisync/internal/logger"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}

type Notifier interface {
	Notify(level Level, text string) error
}

// Func adapts a plain function.
type Func func(level Level, text string) error

func (f Func) Notify(level Level, text string) error { return f(level, text) }

// Log writes notifications to the application log.
type Log struct{}

func (Log) Notify(level Level, text string) error {
	switch level {
	case LevelError:
		logger.Error(text)
	case LevelWarn:
		logger.Warn(text)
	default:
		logger.Info(text)
	}
	return nil
}

// Multi fans a notification out to every target. All targets are tried;
// their errors are joined.
type Multi []Notifier

func (m Multi) Notify(level Level, text string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(level, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops everything.
type Discard struct{}

func (Discard) Notify(Level, string) error { return nil }
