package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vinacert/regadmin/internal/importer"
	"github.com/vinacert/regadmin/internal/logging"
	"github.com/vinacert/regadmin/internal/registry"
)

// companyRow is the wire shape for company listings.
type companyRow struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// handleListCompanies returns all companies as {rows: [{code, name}]}.
func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	rows := make([]companyRow, 0, len(companies))
	for _, c := range companies {
		rows = append(rows, companyRow{Code: c.Code, Name: c.Name})
	}
	writeJSON(w, map[string]any{"rows": rows})
}

// handleListRegistrations returns all registrations for a scope.
func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "missing code")
		return
	}

	rows, err := s.store.ListRegistrations(r.Context(), code)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []registry.Registration{}
	}
	writeJSON(w, map[string]any{"rows": rows})
}

// handlePlainCode resolves the customer-facing code for a company.
func (s *Server) handlePlainCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "missing code")
		return
	}

	plain, err := s.store.PlainCode(r.Context(), code)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"plain_code": plain})
}

// handleSetCustomerCode assigns a customer-facing code via remote procedure.
func (s *Server) handleSetCustomerCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyCode string `json:"company_code"`
		PlainCode   string `json:"plain_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyCode == "" || req.PlainCode == "" {
		writeError(w, r, http.StatusBadRequest, "missing company_code or plain_code")
		return
	}

	if err := s.store.SetCustomerCode(r.Context(), req.CompanyCode, req.PlainCode); err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// productPayload is the loosely-shaped product object of the upsert endpoint.
// Presence of id selects update-in-place over insert.
type productPayload struct {
	ID                 *int64  `json:"id"`
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

// handleUpsertProduct inserts or updates one registration, creating the
// company on the fly when a new company_code is supplied.
func (s *Server) handleUpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyCode string         `json:"company_code"`
		CompanyName string         `json:"company_name"`
		Product     productPayload `json:"product"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	rec := registry.Registration{
		CompanyCode:        req.CompanyCode,
		BrandName:          strings.TrimSpace(req.Product.BrandName),
		CommonLabel:        strings.TrimSpace(req.Product.CommonLabel),
		RegistrationNo:     req.Product.RegistrationNo,
		RegistrationDate:   req.Product.RegistrationDate,
		ExpiryDate:         req.Product.ExpiryDate,
		Importer:           req.Product.Importer,
		ManufacturerSource: req.Product.ManufacturerSource,
		Distributor:        req.Product.Distributor,
		PackedVolume:       req.Product.PackedVolume,
		LicenseNo:          req.Product.LicenseNo,
	}
	if rec.BrandName == "" || rec.CommonLabel == "" {
		writeError(w, r, http.StatusBadRequest, "brand_name and common_label are required")
		return
	}

	var upsert registry.UpsertRequest
	if req.Product.ID != nil {
		upsert = registry.UpdateRequest{ID: *req.Product.ID, CompanyName: req.CompanyName, Registration: rec}
	} else {
		upsert = registry.InsertRequest{CompanyName: req.CompanyName, Registration: rec}
	}

	id, err := s.store.Upsert(r.Context(), upsert)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{"ok": true}
	if id != 0 {
		resp["id"] = id
	}
	writeJSON(w, resp)
}

// handleDeleteProduct deletes one registration by id.
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteRegistration(r.Context(), id); err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// handleBulkDelete deletes many registrations by id.
func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "missing ids")
		return
	}

	if err := s.store.DeleteRegistrations(r.Context(), req.IDs); err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// handleImport runs the import pipeline on an uploaded spreadsheet.
// Multipart fields: file, company_code, replace_mode.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	companyCode := r.FormValue("company_code")
	if companyCode == "" {
		writeError(w, r, http.StatusBadRequest, "missing company_code")
		return
	}
	replace := parseBool(r.FormValue("replace_mode"))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	summary, err := s.importer.Run(r.Context(), header.Filename, file, companyCode, replace)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "results": summary})
}

// handleExport streams all registrations for a scope as a workbook attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "missing code")
		return
	}

	recs, err := s.store.RegistrationsByCompany(r.Context(), code)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+importer.ExportFilename(code)+`"`)
	if err := importer.WriteWorkbook(w, recs); err != nil {
		// Headers are already sent; the client sees a truncated file.
		logging.FromContext(r.Context()).Error("export write failed", "error", err)
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
