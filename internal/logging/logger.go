// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Logger wraps the standard log package with optional file output.
type Logger struct {
	file   *os.File
	logger *log.Logger
	mu     sync.RWMutex
	closed bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger. If already initialized, returns the
// existing logger. logFile may be empty, in which case only stdout is used.
func Init(logFile string) (*Logger, error) {
	var err error
	once.Do(func() {
		defaultLogger, err = NewLogger(logFile)
	})
	return defaultLogger, err
}

// NewLogger creates a new logger instance.
func NewLogger(logFile string) (*Logger, error) {
	var writer io.Writer = os.Stdout
	var file *os.File

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writer = io.MultiWriter(os.Stdout, file)
	}

	return &Logger{
		file:   file,
		logger: log.New(writer, "", log.LstdFlags|log.Lshortfile),
	}, nil
}

// GetDefault returns the default logger, creating a stdout-only fallback if
// Init was never called.
func GetDefault() *Logger {
	if defaultLogger == nil {
		l, _ := NewLogger("")
		defaultLogger = l
	}
	return defaultLogger
}

func (l *Logger) logMessage(level, format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return
	}

	message := fmt.Sprintf(format, v...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	logLine := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	if l.logger != nil {
		l.logger.Output(3, logLine)
	}
}

// Printf logs a message at INFO level.
func (l *Logger) Printf(format string, v ...interface{}) { l.logMessage("INFO", format, v...) }

// Errorf logs a message at ERROR level.
func (l *Logger) Errorf(format string, v ...interface{}) { l.logMessage("ERROR", format, v...) }

// Warnf logs a message at WARN level.
func (l *Logger) Warnf(format string, v ...interface{}) { l.logMessage("WARN", format, v...) }

// Debugf logs a message at DEBUG level.
func (l *Logger) Debugf(format string, v ...interface{}) { l.logMessage("DEBUG", format, v...) }

// Close closes the underlying log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Package-level convenience functions operating on the default logger.

func Printf(format string, v ...interface{}) { GetDefault().Printf(format, v...) }
func Errorf(format string, v ...interface{}) { GetDefault().Errorf(format, v...) }
func Warnf(format string, v ...interface{})  { GetDefault().Warnf(format, v...) }
func Debugf(format string, v ...interface{}) { GetDefault().Debugf(format, v...) }
