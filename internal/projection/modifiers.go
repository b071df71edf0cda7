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

package projection

import "github.com/titan-aas/titan-go-components/internal/common"

// Content selects which fields of the addressed element survive projection.
type Content string

const (
	ContentNormal    Content = "normal"
	ContentMetadata  Content = "metadata"
	ContentValue     Content = "value"
	ContentReference Content = "reference"
	ContentPath      Content = "path"
)

// Level controls traversal depth.
type Level string

const (
	LevelDeep Level = "deep"
	LevelCore Level = "core"
)

// Extent controls whether Blob values are carried.
type Extent string

const (
	ExtentWithBlobValue    Extent = "withBlobValue"
	ExtentWithoutBlobValue Extent = "withoutBlobValue"
)

// Modifiers are the orthogonal IDTA output modifiers applied after
// navigation.
type Modifiers struct {
	Content Content
	Level   Level
	Extent  Extent
}

// DefaultModifiers is the zero query string: full document, deep, with blob
// values.
func DefaultModifiers() Modifiers {
	return Modifiers{Content: ContentNormal, Level: LevelDeep, Extent: ExtentWithBlobValue}
}

// ParseModifiers validates raw query parameters into a modifier set. Empty
// strings select the defaults.
func ParseModifiers(content, level, extent string) (Modifiers, error) {
	mods := DefaultModifiers()
	switch content {
	case "", string(ContentNormal):
	case string(ContentMetadata), string(ContentValue), string(ContentReference), string(ContentPath):
		mods.Content = Content(content)
	default:
		return mods, common.NewErrBadRequest("unsupported content modifier '" + content + "'")
	}
	switch level {
	case "", string(LevelDeep):
	case string(LevelCore):
		mods.Level = LevelCore
	default:
		return mods, common.NewErrBadRequest("unsupported level modifier '" + level + "'")
	}
	switch extent {
	case "", string(ExtentWithBlobValue):
	case string(ExtentWithoutBlobValue):
		mods.Extent = ExtentWithoutBlobValue
	default:
		return mods, common.NewErrBadRequest("unsupported extent modifier '" + extent + "'")
	}
	return mods, nil
}
