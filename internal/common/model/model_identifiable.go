/*
 * DotAAS Part 1 | Metamodel
 *
 * Shared attributes of identifiable entities (IDTA-01001 v3.1.2).
 */

package model

// Identifiable carries the attributes shared by every identifiable entity:
// AssetAdministrationShell, Submodel and ConceptDescription.
type Identifiable struct {
	ID             string                     `json:"id"`
	IDShort        string                     `json:"idShort,omitempty"`
	Category       string                     `json:"category,omitempty"`
	DisplayName    []LangStringNameType       `json:"displayName,omitempty"`
	Description    []LangStringTextType       `json:"description,omitempty"`
	Administration *AdministrativeInformation `json:"administration,omitempty"`
}
