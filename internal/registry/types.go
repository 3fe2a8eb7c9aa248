// Package registry holds the product registration domain model and the store
// that persists it through the hosted table backend.
package registry

// Registration is one product registration row. Optional fields are pointers
// so absent values serialize as null rather than empty strings.
type Registration struct {
	ID                 int64   `json:"id,omitempty"`
	CompanyID          *int64  `json:"company_id,omitempty"`
	CompanyCode        string  `json:"company_code"`
	BrandName          string  `json:"brand_name"`
	CommonLabel        string  `json:"common_label"`
	RegistrationNo     *string `json:"registration_no"`
	RegistrationDate   *string `json:"registration_date"`
	ExpiryDate         *string `json:"expiry_date"`
	Importer           *string `json:"importer"`
	ManufacturerSource *string `json:"manufacturer_source"`
	Distributor        *string `json:"distributor"`
	PackedVolume       *string `json:"packed_volume"`
	LicenseNo          *string `json:"license_no"`
}

// Company is a registered company. Code is the internal business key;
// PlainCode is the separate customer-facing code managed via remote procedures.
type Company struct {
	ID        int64   `json:"id,omitempty"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	PlainCode *string `json:"plain_code,omitempty"`
}

// UpsertRequest is a validated product upsert. The loosely-shaped HTTP payload
// is resolved into exactly one of the two variants before it reaches the
// store: presence of product.id selects UpdateRequest.
type UpsertRequest interface {
	isUpsertRequest()
}

// InsertRequest creates a new registration. CompanyName is used when the
// company referenced by Registration.CompanyCode has to be created on the fly.
type InsertRequest struct {
	CompanyName  string
	Registration Registration
}

// UpdateRequest updates an existing registration in place.
type UpdateRequest struct {
	ID           int64
	CompanyName  string
	Registration Registration
}

func (InsertRequest) isUpsertRequest() {}
func (UpdateRequest) isUpsertRequest() {}
