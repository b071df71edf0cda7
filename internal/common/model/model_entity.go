/*
 * DotAAS Part 1 | Metamodel
 *
 * Entity element (IDTA-01001 v3.1.2).
 */

package model

import jsoniter "github.com/json-iterator/go"

// EntityType distinguishes co-managed from self-managed entities.
type EntityType string

const (
	EntityTypeCoManagedEntity   EntityType = "CoManagedEntity"
	EntityTypeSelfManagedEntity EntityType = "SelfManagedEntity"
)

// Entity describes an asset-related entity with nested statements.
type Entity struct {
	ElementCommon
	EntityType       EntityType        `json:"entityType"`
	GlobalAssetID    string            `json:"globalAssetId,omitempty"`
	SpecificAssetIDs []SpecificAssetID `json:"specificAssetIds,omitempty"`
	Statements       []SubmodelElement `json:"statements,omitempty"`
}

var entityFields = elementFieldSet("entityType", "globalAssetId", "specificAssetIds", "statements")

func (e *Entity) UnmarshalJSON(data []byte) error {
	type alias Entity
	aux := struct {
		*alias
		Statements jsoniter.RawMessage `json:"statements,omitempty"`
	}{alias: (*alias)(e)}
	if err := jsonModel.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Statements) > 0 {
		statements, err := unmarshalElementSlice(aux.Statements)
		if err != nil {
			return err
		}
		e.Statements = statements
	}
	return nil
}

func (e *Entity) ValidateElement(insideList bool) error {
	if err := e.validateCommon(insideList); err != nil {
		return err
	}
	switch e.EntityType {
	case EntityTypeCoManagedEntity, EntityTypeSelfManagedEntity:
	default:
		return newValidationError("Entity requires entityType CoManagedEntity or SelfManagedEntity")
	}
	for _, statement := range e.Statements {
		if err := statement.ValidateElement(false); err != nil {
			return err
		}
	}
	return nil
}
