// Copyright 2023 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger is the storage engine's structured logging surface: one
// process-wide *slog.Logger, backed by stderr or a lumberjack-rotated file,
// gated by the severities of cfg.LoggingConfig.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/essandess/blockfs/cfg"
	"github.com/essandess/blockfs/internal/locker"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels. slog's built-in levels only span Debug..Error, so Trace
// sits below Debug and Off sits above Error, wide enough apart that
// WithAttrs-derived levels never collide with them.
const (
	LevelTrace slog.Level = slog.LevelDebug - 4
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelOff   slog.Level = slog.LevelError + 4
)

const asyncLogBufferSize = 1000

type loggerFactory struct {
	file            *os.File
	sysWriter       io.Writer
	writer          io.Writer
	format          string
	level           string
	logRotateConfig cfg.LogRotateConfig
}

var (
	defaultLoggerFactory *loggerFactory
	defaultLogger        *slog.Logger
	mu                   sync.Mutex
)

func init() {
	defaultLoggerFactory = &loggerFactory{
		sysWriter:       os.Stderr,
		writer:          os.Stderr,
		format:          string(cfg.TextFormat),
		level:           cfg.INFO,
		logRotateConfig: cfg.DefaultConfig().Logging.LogRotate,
	}
	programLevel := new(slog.LevelVar)
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(defaultLoggerFactory.writer, programLevel, ""))

	locker.SetDebugLogger(Tracef)
}

func setLoggingLevel(level string, programLevel *slog.LevelVar) {
	switch level {
	case cfg.TRACE:
		programLevel.Set(LevelTrace)
	case cfg.DEBUG:
		programLevel.Set(LevelDebug)
	case cfg.INFO:
		programLevel.Set(LevelInfo)
	case cfg.WARNING:
		programLevel.Set(LevelWarn)
	case cfg.ERROR:
		programLevel.Set(LevelError)
	case cfg.OFF:
		programLevel.Set(LevelOff)
	default:
		programLevel.Set(LevelInfo)
	}
}

func severityName(level slog.Level) string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// textOrJSONHandler renders one line per record in the format the storage
// engine has always used: not slog's own TextHandler/JSONHandler encoding,
// but a fixed "time/severity/message" triple so log scrapers don't need to
// be taught a new schema every time a field gets added to an attr set.
type textOrJSONHandler struct {
	w      io.Writer
	level  *slog.LevelVar
	prefix string
	format string
	mu     *sync.Mutex
}

func (h *textOrJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *textOrJSONHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := h.prefix + r.Message
	if h.format == string(cfg.TextFormat) {
		_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n", r.Time.Format("2006/01/02 15:04:05.000000"), severityName(r.Level), msg)
		return err
	}

	_, err := fmt.Fprintf(h.w, "{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n", r.Time.Unix(), r.Time.Nanosecond(), severityName(r.Level), msg)
	return err
}

func (h *textOrJSONHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *textOrJSONHandler) WithGroup(_ string) slog.Handler      { return h }

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, programLevel *slog.LevelVar, prefix string) slog.Handler {
	return &textOrJSONHandler{
		w:      w,
		level:  programLevel,
		prefix: prefix,
		format: f.format,
		mu:     &sync.Mutex{},
	}
}

// InitLogFile points the default logger at a lumberjack-rotated file
// instead of stderr, per the resolved LoggingConfig.
func InitLogFile(config cfg.LoggingConfig) error {
	mu.Lock()
	defer mu.Unlock()

	path := string(config.FilePath)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file %q: %w", path, err)
	}

	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    config.LogRotate.MaxFileSizeMb,
		MaxBackups: config.LogRotate.BackupFileCount,
		Compress:   config.LogRotate.Compress,
	}

	defaultLoggerFactory = &loggerFactory{
		file:            f,
		sysWriter:       nil,
		writer:          NewAsyncLogger(rotated, asyncLogBufferSize),
		format:          string(config.Format),
		level:           string(config.Severity),
		logRotateConfig: config.LogRotate,
	}

	programLevel := new(slog.LevelVar)
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(defaultLoggerFactory.writer, programLevel, ""))

	return nil
}

// SetLogFormat switches the default logger between "text" and "json" (or
// any other value, which is treated as json) without touching its writer
// or severity.
func SetLogFormat(format string) {
	mu.Lock()
	defer mu.Unlock()

	defaultLoggerFactory.format = format
	programLevel := new(slog.LevelVar)
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(defaultLoggerFactory.writer, programLevel, ""))
}

// SetLogSeverity changes the minimum severity emitted by the default logger.
func SetLogSeverity(severity cfg.LogSeverity) {
	mu.Lock()
	defer mu.Unlock()

	defaultLoggerFactory.level = severity.String()
	programLevel := new(slog.LevelVar)
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(defaultLoggerFactory.writer, programLevel, ""))
}

func log(level slog.Level, format string, v ...any) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Tracef(format string, v ...any) { log(LevelTrace, format, v...) }
func Debugf(format string, v ...any) { log(LevelDebug, format, v...) }
func Infof(format string, v ...any)  { log(LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { log(LevelWarn, format, v...) }
func Errorf(format string, v ...any) { log(LevelError, format, v...) }
