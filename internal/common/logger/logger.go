/*******************************************************************************
* Copyright (C) 2026 the Titan-AAS Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package logger provides area-prefixed logging for Titan-AAS components.
package logger

import (
	"log"
	"os"
)

// Logger writes prefixed log lines for one component area.
type Logger struct {
	l *log.Logger
}

// New creates a logger whose lines carry the given area prefix, e.g.
// "[Repository]".
func New(area string) *Logger {
	return &Logger{l: log.New(os.Stderr, "["+area+"] ", log.LstdFlags|log.Lshortfile)}
}

// Error logs an error with context information.
func (lg *Logger) Error(context string, err error) {
	if err != nil {
		lg.l.Printf("ERROR: %s: %v", context, err)
	}
}

// Info logs an informational message.
func (lg *Logger) Info(message string) {
	lg.l.Printf("INFO: %s", message)
}

// Infof logs a formatted informational message.
func (lg *Logger) Infof(format string, args ...interface{}) {
	lg.l.Printf("INFO: "+format, args...)
}

// Warn logs a warning message.
func (lg *Logger) Warn(message string) {
	lg.l.Printf("WARN: %s", message)
}

// Warnf logs a formatted warning message.
func (lg *Logger) Warnf(format string, args ...interface{}) {
	lg.l.Printf("WARN: "+format, args...)
}

// Debugf logs a formatted debug message.
func (lg *Logger) Debugf(format string, args ...interface{}) {
	lg.l.Printf("DEBUG: "+format, args...)
}
