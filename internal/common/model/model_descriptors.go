/*
 * DotAAS Part 2 | Registry and Discovery
 *
 * Shell and submodel descriptors (IDTA-01002 v3.1.1). Descriptors carry
 * identification plus endpoints; they do not necessarily resolve to a
 * locally hosted entity.
 */

package model

// ProtocolInformation describes how an endpoint is reached.
type ProtocolInformation struct {
	Href                 string `json:"href"`
	EndpointProtocol     string `json:"endpointProtocol,omitempty"`
	SubProtocol          string `json:"subprotocol,omitempty"`
	SubProtocolBody      string `json:"subprotocolBody,omitempty"`
	SecurityAttributeRef string `json:"securityAttributeRef,omitempty"`
}

// Endpoint binds an interface name to protocol information.
type Endpoint struct {
	Interface           string              `json:"interface"`
	ProtocolInformation ProtocolInformation `json:"protocolInformation"`
}

// SubmodelDescriptor registers a submodel hosted anywhere.
type SubmodelDescriptor struct {
	ID             string                     `json:"id"`
	IDShort        string                     `json:"idShort,omitempty"`
	Description    []LangStringTextType       `json:"description,omitempty"`
	DisplayName    []LangStringNameType       `json:"displayName,omitempty"`
	Administration *AdministrativeInformation `json:"administration,omitempty"`
	SemanticID     *Reference                 `json:"semanticId,omitempty"`
	Endpoints      []Endpoint                 `json:"endpoints,omitempty"`
}

// AssetAdministrationShellDescriptor registers a shell hosted anywhere.
type AssetAdministrationShellDescriptor struct {
	ID                  string                     `json:"id"`
	IDShort             string                     `json:"idShort,omitempty"`
	Description         []LangStringTextType       `json:"description,omitempty"`
	DisplayName         []LangStringNameType       `json:"displayName,omitempty"`
	Administration      *AdministrativeInformation `json:"administration,omitempty"`
	AssetKind           AssetKind                  `json:"assetKind,omitempty"`
	AssetType           string                     `json:"assetType,omitempty"`
	GlobalAssetID       string                     `json:"globalAssetId,omitempty"`
	SpecificAssetIDs    []SpecificAssetID          `json:"specificAssetIds,omitempty"`
	Endpoints           []Endpoint                 `json:"endpoints,omitempty"`
	SubmodelDescriptors []SubmodelDescriptor       `json:"submodelDescriptors,omitempty"`
}

// Validate checks the minimum structural constraints of a shell descriptor.
func (d *AssetAdministrationShellDescriptor) Validate() error {
	if err := validateIdentifier(d.ID); err != nil {
		return err
	}
	if err := validateOptionalIDShort(d.IDShort); err != nil {
		return err
	}
	return validateAdministration(d.Administration)
}

// Validate checks the minimum structural constraints of a submodel descriptor.
func (d *SubmodelDescriptor) Validate() error {
	if err := validateIdentifier(d.ID); err != nil {
		return err
	}
	if err := validateOptionalIDShort(d.IDShort); err != nil {
		return err
	}
	return validateAdministration(d.Administration)
}
