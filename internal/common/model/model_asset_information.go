/*
 * DotAAS Part 1 | Metamodel
 *
 * Asset information of an AAS (IDTA-01001 v3.1.2).
 */

package model

// AssetKind distinguishes asset types from asset instances.
type AssetKind string

const (
	AssetKindType     AssetKind = "Type"
	AssetKindInstance AssetKind = "Instance"
	AssetKindNotSet   AssetKind = "NotApplicable"
)

// SpecificAssetID is a supplementary, domain-specific asset identifier.
type SpecificAssetID struct {
	Name              string     `json:"name"`
	Value             string     `json:"value"`
	SemanticID        *Reference `json:"semanticId,omitempty"`
	ExternalSubjectID *Reference `json:"externalSubjectId,omitempty"`
}

// AssetInformation identifies the asset an AAS represents.
type AssetInformation struct {
	AssetKind        AssetKind         `json:"assetKind"`
	GlobalAssetID    string            `json:"globalAssetId,omitempty"`
	SpecificAssetIDs []SpecificAssetID `json:"specificAssetIds,omitempty"`
	AssetType        string            `json:"assetType,omitempty"`
}
