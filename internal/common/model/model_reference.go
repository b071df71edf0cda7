/*
 * DotAAS Part 1 | Metamodel
 *
 * Reference and Key types of the AAS metamodel (IDTA-01001 v3.1.2).
 * References address entities by identifier, never by in-memory pointer.
 */

package model

// ReferenceTypes discriminates external from model references.
type ReferenceTypes string

const (
	ReferenceTypesExternalReference ReferenceTypes = "ExternalReference"
	ReferenceTypesModelReference    ReferenceTypes = "ModelReference"
)

// Key is one step of a reference chain.
type Key struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Reference addresses an identifiable or a nested element via a key chain.
type Reference struct {
	Type               ReferenceTypes `json:"type"`
	Keys               []Key          `json:"keys"`
	ReferredSemanticID *Reference     `json:"referredSemanticId,omitempty"`
}

// NewModelReference builds a model reference from a key chain.
func NewModelReference(keys ...Key) *Reference {
	return &Reference{Type: ReferenceTypesModelReference, Keys: keys}
}
