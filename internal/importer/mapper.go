package importer

import (
	"strings"

	"github.com/vinacert/regadmin/internal/registry"
)

// Row is one raw spreadsheet row, keyed by normalized header name.
type Row map[string]string

// headerSources lists the accepted source headers for each logical field in
// priority order: the canonical English name first, then the Vietnamese
// header used on ministry templates. Add a name here to support another
// locale or template variant.
var headerSources = map[string][]string{
	"brand_name":          {"brand_name", "thương hiệu", "tên thương hiệu"},
	"common_label":        {"common_label", "tên chung", "nhãn chung"},
	"registration_no":     {"registration_no", "số đăng ký"},
	"registration_date":   {"registration_date", "ngày đăng ký"},
	"expiry_date":         {"expiry_date", "ngày hết hạn"},
	"importer":            {"importer", "nhà nhập khẩu"},
	"manufacturer_source": {"manufacturer_source", "nhà sản xuất"},
	"distributor":         {"distributor", "nhà phân phối"},
	"packed_volume":       {"packed_volume", "quy cách đóng gói"},
	"license_no":          {"license_no", "số giấy phép"},
}

// normalizeHeader folds a raw header cell to its lookup form.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// pick returns the first non-empty value among the accepted headers for field.
func pick(row Row, field string) string {
	for _, name := range headerSources[field] {
		if v, ok := row[name]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// MapRow converts one raw row into a registration record. Rows whose brand
// name or common label is empty after trimming are dropped (ok=false); all
// other fields are optional pass-through.
func MapRow(row Row) (registry.Registration, bool) {
	rec := registry.Registration{
		BrandName:   strings.TrimSpace(pick(row, "brand_name")),
		CommonLabel: strings.TrimSpace(pick(row, "common_label")),
	}
	if rec.BrandName == "" || rec.CommonLabel == "" {
		return registry.Registration{}, false
	}

	rec.RegistrationNo = optional(pick(row, "registration_no"))
	rec.RegistrationDate = NormalizeDate(pick(row, "registration_date"))
	rec.ExpiryDate = NormalizeDate(pick(row, "expiry_date"))
	rec.Importer = optional(pick(row, "importer"))
	rec.ManufacturerSource = optional(pick(row, "manufacturer_source"))
	rec.Distributor = optional(pick(row, "distributor"))
	rec.PackedVolume = optional(pick(row, "packed_volume"))
	rec.LicenseNo = optional(pick(row, "license_no"))

	return rec, true
}

// optional trims a cell and returns nil for empty values so they persist as null.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
