/*
 * DotAAS Part 1 | Metamodel
 *
 * ConceptDescription (IDTA-01001 v3.1.2).
 */

package model

// ConceptDescription defines the semantics of elements referring to it.
type ConceptDescription struct {
	Identifiable
	ModelType string       `json:"modelType"`
	IsCaseOf  []*Reference `json:"isCaseOf,omitempty"`
}

var conceptDescriptionFields = fieldSet(
	"id", "idShort", "category", "displayName", "description", "administration",
	"modelType", "isCaseOf", "extensions", "embeddedDataSpecifications",
)

// ParseConceptDescription decodes and validates a ConceptDescription payload.
func ParseConceptDescription(data []byte) (*ConceptDescription, error) {
	if err := checkUnknownFields(data, conceptDescriptionFields); err != nil {
		return nil, err
	}
	var cd ConceptDescription
	if err := jsonModel.Unmarshal(data, &cd); err != nil {
		return nil, newParseError("ConceptDescription", err)
	}
	if err := cd.Validate(); err != nil {
		return nil, err
	}
	return &cd, nil
}

// Validate enforces the structural constraints of a ConceptDescription.
func (c *ConceptDescription) Validate() error {
	if c.ModelType != "ConceptDescription" {
		return newValidationError("modelType must be ConceptDescription")
	}
	if err := validateIdentifier(c.ID); err != nil {
		return err
	}
	if err := validateOptionalIDShort(c.IDShort); err != nil {
		return err
	}
	return validateAdministration(c.Administration)
}
