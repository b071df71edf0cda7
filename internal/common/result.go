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
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonResult = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is a single entry of the IDTA Result envelope (IDTA-01002).
type Message struct {
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	MessageType   string `json:"messageType,omitempty"`
	Text          string `json:"text,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// Result is the uniform IDTA error/info envelope returned on every failure.
type Result struct {
	Messages []Message `json:"messages"`
}

// WriteErrorResponse serializes a service error as an IDTA Result envelope
// with the matching HTTP status. Internal errors are reported with a generic
// text so that 5xx responses never leak implementation detail.
func WriteErrorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatusOf(err)
	text := MessageOf(err)
	messageType := "Error"
	if status >= http.StatusInternalServerError {
		text = "an internal error occurred"
		messageType = "Exception"
	}
	result := Result{Messages: []Message{{
		Code:        CodeOf(err),
		MessageType: messageType,
		Text:        text,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}}}
	WriteJSONResponse(w, status, result)
}

// WriteJSONResponse marshals v and writes it with the given status code.
func WriteJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	body, err := jsonResult.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteCanonicalResponse writes pre-serialized canonical bytes together with
// the strong ETag header. Used on the fast GET path where the repository
// already holds the exact response body.
func WriteCanonicalResponse(w http.ResponseWriter, status int, body []byte, etag string) {
	w.Header().Set("Content-Type", "application/json")
	if etag != "" {
		w.Header().Set("ETag", `"`+etag+`"`)
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
