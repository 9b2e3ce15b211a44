// Package logging is the core's logging sink: four level-gated
// severities (debug/info/warn/error), available in both synchronous and
// asynchronous (background-drained, bounded-queue) modes. Modeled on
// code/log/log.cpp and code/log/blockqueue.h, built on
// github.com/sirupsen/logrus for the actual level/formatting machinery
// rather than hand-rolling one.
//
// Failure to log must never propagate into the reactor or a worker
// failure to log must never propagate: Errorf/Warnf/etc. never return anything the caller could
// check, and the async appender drops a log line rather than blocking
// the caller when its queue is full.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level mirrors the four severities of code/log/log.cpp's level gate.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case Debug:
		return logrus.DebugLevel
	case Warn:
		return logrus.WarnLevel
	case Error:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the sink the reactor and worker pool log through. The zero
// value is not usable; construct with New.
type Logger struct {
	base *logrus.Logger

	async   bool
	queue   chan entry
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type entry struct {
	level Level
	msg   string
}

// Config selects the sink's level gate and, when QueueSize > 0, puts the
// sink into asynchronous mode with a bounded queue of that size drained
// by a single background goroutine — the Go channel equivalent of
// BlockDeque<std::string> in code/log/blockqueue.h.
type Config struct {
	Level     Level
	QueueSize int
}

// New constructs a Logger writing to stderr. Asynchronous mode is
// enabled when cfg.QueueSize > 0.
func New(cfg Config) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(cfg.Level.logrusLevel())
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	l := &Logger{base: base}
	if cfg.QueueSize > 0 {
		l.async = true
		l.queue = make(chan entry, cfg.QueueSize)
		l.closeCh = make(chan struct{})
		l.wg.Add(1)
		go l.drain()
	}
	return l
}

func (l *Logger) drain() {
	defer l.wg.Done()
	for {
		select {
		case e := <-l.queue:
			l.emit(e.level, e.msg)
		case <-l.closeCh:
			// Flush whatever's left, then exit; mirrors
			// Log::~Log()'s "while (!deque_->empty()) flush()"
			// drain-before-close discipline.
			for {
				select {
				case e := <-l.queue:
					l.emit(e.level, e.msg)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) emit(level Level, msg string) {
	l.base.Log(level.logrusLevel(), msg)
}

func (l *Logger) log(level Level, msg string) {
	if !l.async {
		l.emit(level, msg)
		return
	}
	select {
	case l.queue <- entry{level, msg}:
	default:
		// Queue full: drop rather than block the caller, same
		// never-propagate guarantee as a failed fputs in Log::write.
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, sprintf(format, args)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(Info, sprintf(format, args)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(Warn, sprintf(format, args)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, sprintf(format, args)) }

// Close stops the async drain goroutine after flushing the queue. It is
// a no-op in synchronous mode.
func (l *Logger) Close() {
	if !l.async {
		return
	}
	close(l.closeCh)
	l.wg.Wait()
}
