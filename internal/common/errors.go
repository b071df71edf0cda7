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

package common

import (
	"errors"
	"net/http"
	"strings"
)

// Service errors carry their HTTP semantics as a stable string prefix so that
// they survive wrapping across layer boundaries (persistence, cache, API)
// without dragging HTTP types into those layers.
const (
	prefixNotFound           = "404 NotFound: "
	prefixConflict           = "409 Conflict: "
	prefixBadRequest         = "400 BadRequest: "
	prefixInvalidBase64      = "400 InvalidBase64Url: "
	prefixPreconditionFailed = "412 PreconditionFailed: "
	prefixTooManyRequests    = "429 TooManyRequests: "
	prefixUnauthorized       = "401 Unauthorized: "
	prefixForbidden          = "403 Forbidden: "
	prefixInternal           = "500 InternalServerError: "
)

// NewErrNotFound is returned when a repository lookup misses.
func NewErrNotFound(message string) error {
	return errors.New(prefixNotFound + message)
}

// NewErrConflict is returned when a create collides with an existing id.
func NewErrConflict(message string) error {
	return errors.New(prefixConflict + message)
}

// NewErrBadRequest is returned on domain validation failures.
func NewErrBadRequest(message string) error {
	return errors.New(prefixBadRequest + message)
}

// NewErrInvalidBase64URL is returned by the identifier codec.
func NewErrInvalidBase64URL(message string) error {
	return errors.New(prefixInvalidBase64 + message)
}

// NewErrPreconditionFailed is returned on If-Match mismatches.
func NewErrPreconditionFailed(message string) error {
	return errors.New(prefixPreconditionFailed + message)
}

// NewErrTooManyRequests is returned by the rate limiter.
func NewErrTooManyRequests(message string) error {
	return errors.New(prefixTooManyRequests + message)
}

// NewErrUnauthorized is returned when a request carries no valid credentials.
func NewErrUnauthorized(message string) error {
	return errors.New(prefixUnauthorized + message)
}

// NewErrForbidden is returned when valid credentials lack the required role.
func NewErrForbidden(message string) error {
	return errors.New(prefixForbidden + message)
}

// NewInternalServerError is returned for infrastructure failures.
func NewInternalServerError(message string) error {
	return errors.New(prefixInternal + message)
}

func IsErrNotFound(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixNotFound)
}

func IsErrConflict(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixConflict)
}

func IsErrBadRequest(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixBadRequest)
}

func IsErrInvalidBase64URL(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixInvalidBase64)
}

func IsErrPreconditionFailed(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixPreconditionFailed)
}

func IsErrTooManyRequests(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixTooManyRequests)
}

func IsErrUnauthorized(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixUnauthorized)
}

func IsErrForbidden(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixForbidden)
}

// HTTPStatusOf maps a service error onto its HTTP status code. Unknown errors
// map to 500 so that no internal detail leaks by accident.
func HTTPStatusOf(err error) int {
	switch {
	case IsErrNotFound(err):
		return http.StatusNotFound
	case IsErrConflict(err):
		return http.StatusConflict
	case IsErrBadRequest(err), IsErrInvalidBase64URL(err):
		return http.StatusBadRequest
	case IsErrPreconditionFailed(err):
		return http.StatusPreconditionFailed
	case IsErrTooManyRequests(err):
		return http.StatusTooManyRequests
	case IsErrUnauthorized(err):
		return http.StatusUnauthorized
	case IsErrForbidden(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf maps a service error onto its IDTA Result message code.
func CodeOf(err error) string {
	switch {
	case IsErrNotFound(err):
		return "NotFound"
	case IsErrConflict(err):
		return "Conflict"
	case IsErrInvalidBase64URL(err):
		return "InvalidBase64Url"
	case IsErrBadRequest(err):
		return "BadRequest"
	case IsErrPreconditionFailed(err):
		return "PreconditionFailed"
	case IsErrTooManyRequests(err):
		return "TooManyRequests"
	case IsErrUnauthorized(err):
		return "Unauthorized"
	case IsErrForbidden(err):
		return "Forbidden"
	default:
		return "InternalServerError"
	}
}

// MessageOf strips the status prefix and returns the human-readable text.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	if idx := strings.Index(text, ": "); idx > 0 && idx < 32 {
		return text[idx+2:]
	}
	return text
}
