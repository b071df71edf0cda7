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

// Package projection navigates and transforms generic JSON documents of the
// AAS metamodel. It operates on the decoded form of canonical bytes
// (map[string]interface{} trees) so that re-serialization stays
// byte-faithful; every transformation is a pure function of the input
// document and the modifier set.
package projection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// Step is one unit of an idShortPath: either a name step (idShort lookup in
// a Submodel, collection, statements or annotations) or an index step
// (zero-based position in a SubmodelElementList or an operation-variable
// group).
type Step struct {
	Name    string
	Index   int
	IsIndex bool
}

func (s Step) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Name
}

// ParseIDShortPath parses `segment ('.' segment | '[' index ']')*`. The
// empty path is valid and addresses the document itself.
func ParseIDShortPath(path string) ([]Step, error) {
	if path == "" {
		return nil, nil
	}
	var steps []Step
	i := 0
	expectName := true
	for i < len(path) {
		switch {
		case path[i] == '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, badPath(path, "unterminated index")
			}
			index, err := strconv.Atoi(path[i+1 : i+end])
			if err != nil || index < 0 {
				return nil, badPath(path, "index must be a non-negative integer")
			}
			if len(steps) == 0 {
				return nil, badPath(path, "path must not start with an index")
			}
			steps = append(steps, Step{Index: index, IsIndex: true})
			i += end + 1
			expectName = false
		case path[i] == '.':
			if expectName {
				return nil, badPath(path, "empty segment")
			}
			i++
			expectName = true
		default:
			end := i
			for end < len(path) && path[end] != '.' && path[end] != '[' {
				end++
			}
			name := path[i:end]
			if !validSegment(name) {
				return nil, badPath(path, fmt.Sprintf("segment %q is not a valid idShort", name))
			}
			steps = append(steps, Step{Name: name})
			i = end
			expectName = false
		}
	}
	if expectName {
		return nil, badPath(path, "trailing dot")
	}
	return steps, nil
}

func badPath(path, reason string) error {
	return common.NewErrBadRequest("invalid idShortPath '" + path + "': " + reason)
}

func validSegment(name string) bool {
	if name == "" || len(name) > 128 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// AppendName extends an idShortPath with a name step.
func AppendName(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// AppendIndex extends an idShortPath with an index step.
func AppendIndex(path string, index int) string {
	return path + "[" + strconv.Itoa(index) + "]"
}
