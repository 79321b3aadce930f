/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger provides the structured logging surface shared by the
// master daemon, worker daemon, and every component package in this
// module: job state transitions, connector RPC calls, and storage backend
// I/O errors all flow through a Logger rather than the stdlib log package.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging surface used throughout this module.
type Logger interface {
	io.Closer

	SetLevel(lvl Level)
	GetLevel() Level

	SetFields(f Fields)
	GetFields() Fields

	// With returns a derived Logger that merges f into every entry it logs,
	// leaving the receiver's own fields untouched.
	With(f Fields) Logger

	Debug(message string, fields Fields)
	Info(message string, fields Fields)
	Warning(message string, fields Fields)
	Error(message string, err error, fields Fields)
	Fatal(message string, err error, fields Fields)

	// CheckError logs err at lvlKO if it is not nil, otherwise logs message
	// at lvlOK when lvlOK != NilLevel. Returns true when err was nil.
	CheckError(lvlKO, lvlOK Level, message string, err error, fields Fields) bool

	// StdWriter returns an io.Writer that logs whatever is written to it at
	// the given level, one line per Write call's trailing newline — used to
	// redirect a subprocess's stderr (e.g. an sftp batch session) into the
	// structured log.
	StdWriter(lvl Level) io.Writer
}

type logger struct {
	e *logrus.Entry
}

// New returns a Logger that writes JSON-formatted entries to w at InfoLevel
// or above, tagged with the given base fields.
func New(w io.Writer, fields Fields) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(InfoLevel.logrus())

	return &logger{e: l.WithFields(logrus.Fields(fields.clone()))}
}

func (l *logger) Close() error {
	return nil
}

func (l *logger) SetLevel(lvl Level) {
	l.e.Logger.SetLevel(lvl.logrus())
}

func (l *logger) GetLevel() Level {
	switch l.e.Logger.GetLevel() {
	case logrus.PanicLevel:
		return PanicLevel
	case logrus.FatalLevel:
		return FatalLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.DebugLevel:
		return DebugLevel
	default:
		return NilLevel
	}
}

func (l *logger) SetFields(f Fields) {
	l.e = l.e.Logger.WithFields(logrus.Fields(f.clone()))
}

func (l *logger) GetFields() Fields {
	return Fields(l.e.Data)
}

func (l *logger) With(f Fields) Logger {
	return &logger{e: l.e.WithFields(logrus.Fields(f))}
}

func (l *logger) Debug(message string, fields Fields) {
	l.entry(fields).Debug(message)
}

func (l *logger) Info(message string, fields Fields) {
	l.entry(fields).Info(message)
}

func (l *logger) Warning(message string, fields Fields) {
	l.entry(fields).Warning(message)
}

func (l *logger) Error(message string, err error, fields Fields) {
	l.withErr(err, fields).Error(message)
}

func (l *logger) Fatal(message string, err error, fields Fields) {
	l.withErr(err, fields).Fatal(message)
}

func (l *logger) CheckError(lvlKO, lvlOK Level, message string, err error, fields Fields) bool {
	if err != nil {
		l.logAt(lvlKO, message, l.withErr(err, fields))
		return false
	}
	if lvlOK != NilLevel {
		l.logAt(lvlOK, message, l.entry(fields))
	}
	return true
}

func (l *logger) logAt(lvl Level, message string, e *logrus.Entry) {
	switch lvl {
	case PanicLevel:
		e.Panic(message)
	case FatalLevel:
		e.Fatal(message)
	case ErrorLevel:
		e.Error(message)
	case WarnLevel:
		e.Warning(message)
	case DebugLevel:
		e.Debug(message)
	case NilLevel:
		return
	default:
		e.Info(message)
	}
}

func (l *logger) entry(fields Fields) *logrus.Entry {
	if len(fields) == 0 {
		return l.e
	}
	return l.e.WithFields(logrus.Fields(fields))
}

func (l *logger) withErr(err error, fields Fields) *logrus.Entry {
	e := l.entry(fields)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

func (l *logger) StdWriter(lvl Level) io.Writer {
	return l.e.Logger.WriterLevel(lvl.logrus())
}
