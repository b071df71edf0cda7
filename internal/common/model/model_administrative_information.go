/*
 * DotAAS Part 1 | Metamodel
 *
 * Administrative information of an identifiable (IDTA-01001 v3.1.2).
 */

package model

// AdministrativeInformation carries versioning metadata of an identifiable.
type AdministrativeInformation struct {
	Version    string     `json:"version,omitempty"`
	Revision   string     `json:"revision,omitempty"`
	Creator    *Reference `json:"creator,omitempty"`
	TemplateID string     `json:"templateId,omitempty"`
}

// Qualifier constrains the value statement of a qualifiable element.
type Qualifier struct {
	Kind        string     `json:"kind,omitempty"`
	Type        string     `json:"type"`
	ValueType   string     `json:"valueType"`
	Value       string     `json:"value,omitempty"`
	ValueID     *Reference `json:"valueId,omitempty"`
	SemanticID  *Reference `json:"semanticId,omitempty"`
}
