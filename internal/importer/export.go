package importer

import (
	"fmt"
	"io"

	"github.com/vinacert/regadmin/internal/registry"
	"github.com/xuri/excelize/v2"
)

// exportColumns is the fixed, stable column order of exported workbooks.
var exportColumns = []string{
	"company_code",
	"brand_name",
	"common_label",
	"registration_no",
	"registration_date",
	"expiry_date",
	"importer",
	"manufacturer_source",
	"distributor",
	"packed_volume",
	"license_no",
}

const exportSheet = "Registrations"

// ExportFilename derives the attachment filename for a scope.
func ExportFilename(companyCode string) string {
	return fmt.Sprintf("registrations_%s.xlsx", companyCode)
}

// WriteWorkbook serializes records into a single-sheet workbook on w, in
// exportColumns order. Null fields render as empty cells.
func WriteWorkbook(w io.Writer, recs []registry.Registration) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	header := make([]any, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for i, rec := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		row := []any{
			rec.CompanyCode,
			rec.BrandName,
			rec.CommonLabel,
			cellValue(rec.RegistrationNo),
			cellValue(rec.RegistrationDate),
			cellValue(rec.ExpiryDate),
			cellValue(rec.Importer),
			cellValue(rec.ManufacturerSource),
			cellValue(rec.Distributor),
			cellValue(rec.PackedVolume),
			cellValue(rec.LicenseNo),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("export: write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func cellValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
