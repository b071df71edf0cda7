/*
 * DotAAS Part 1 | Metamodel
 *
 * Submodel (IDTA-01001 v3.1.2).
 */

package model

import jsoniter "github.com/json-iterator/go"

// ModellingKind distinguishes templates from instances.
type ModellingKind string

const (
	ModellingKindTemplate ModellingKind = "Template"
	ModellingKindInstance ModellingKind = "Instance"
)

// Submodel is an identifiable container of submodel elements.
type Submodel struct {
	Identifiable
	ModelType               string            `json:"modelType"`
	Kind                    ModellingKind     `json:"kind,omitempty"`
	SemanticID              *Reference        `json:"semanticId,omitempty"`
	SupplementalSemanticIDs []*Reference      `json:"supplementalSemanticIds,omitempty"`
	Qualifiers              []Qualifier       `json:"qualifiers,omitempty"`
	SubmodelElements        []SubmodelElement `json:"submodelElements,omitempty"`
}

var submodelFields = fieldSet(
	"id", "idShort", "category", "displayName", "description", "administration",
	"modelType", "kind", "semanticId", "supplementalSemanticIds", "qualifiers",
	"submodelElements", "extensions", "embeddedDataSpecifications",
)

func (s *Submodel) UnmarshalJSON(data []byte) error {
	type alias Submodel
	aux := struct {
		*alias
		SubmodelElements jsoniter.RawMessage `json:"submodelElements,omitempty"`
	}{alias: (*alias)(s)}
	if err := jsonModel.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.SubmodelElements) > 0 {
		elements, err := unmarshalElementSlice(aux.SubmodelElements)
		if err != nil {
			return err
		}
		s.SubmodelElements = elements
	}
	return nil
}

// ParseSubmodel decodes and validates a Submodel payload. Unknown top-level
// members are rejected.
func ParseSubmodel(data []byte) (*Submodel, error) {
	if err := checkUnknownFields(data, submodelFields); err != nil {
		return nil, err
	}
	var submodel Submodel
	if err := jsonModel.Unmarshal(data, &submodel); err != nil {
		return nil, newParseError("Submodel", err)
	}
	if err := submodel.Validate(); err != nil {
		return nil, err
	}
	return &submodel, nil
}

// Validate enforces the structural constraints of a Submodel.
func (s *Submodel) Validate() error {
	if s.ModelType != "Submodel" {
		return newValidationError("modelType must be Submodel")
	}
	if err := validateIdentifier(s.ID); err != nil {
		return err
	}
	if err := validateOptionalIDShort(s.IDShort); err != nil {
		return err
	}
	if err := validateAdministration(s.Administration); err != nil {
		return err
	}
	switch s.Kind {
	case "", ModellingKindTemplate, ModellingKindInstance:
	default:
		return newValidationError("kind must be Template or Instance")
	}
	seen := make(map[string]struct{}, len(s.SubmodelElements))
	for _, element := range s.SubmodelElements {
		if err := element.ValidateElement(false); err != nil {
			return err
		}
		idShort := element.GetIdShort()
		if _, dup := seen[idShort]; dup {
			return newValidationError("duplicate idShort among submodelElements: " + idShort)
		}
		seen[idShort] = struct{}{}
	}
	return nil
}

// IsTemplate reports whether the submodel is declared as a template.
func (s *Submodel) IsTemplate() bool {
	return s.Kind == ModellingKindTemplate
}
