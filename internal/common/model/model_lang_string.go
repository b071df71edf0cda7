/*
 * DotAAS Part 1 | Metamodel
 *
 * Language-tagged string types (IDTA-01001 v3.1.2).
 */

package model

// LangStringTextType is a language-tagged text, used for descriptions.
type LangStringTextType struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// LangStringNameType is a language-tagged name, used for display names.
type LangStringNameType struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}
