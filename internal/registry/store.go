package registry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vinacert/regadmin/internal/backend"
)

const (
	registrationsTable = "product_registrations"
	companiesTable     = "companies"

	rpcListRegistrations = "list_registrations"
	rpcGetPlainCode      = "get_plain_code"
	rpcSetCustomerCode   = "set_customer_code"
)

// Store persists registrations and companies through the backend client.
type Store struct {
	client *backend.Client
}

// NewStore creates a Store over the given backend client.
func NewStore(client *backend.Client) *Store {
	return &Store{client: client}
}

// lookup tries the primary (remote procedure) path and falls back to the
// direct table path only when the procedure is unavailable on the backend.
// Any other procedure error is surfaced so genuine data errors are not masked.
func lookup[T any](ctx context.Context, primary, fallback func(ctx context.Context) (T, error)) (T, error) {
	out, err := primary(ctx)
	if err != nil && backend.IsUnavailable(err) {
		return fallback(ctx)
	}
	return out, err
}

// ListCompanies returns all companies ordered by code.
func (s *Store) ListCompanies(ctx context.Context) ([]Company, error) {
	q := url.Values{}
	q.Set("select", "id,code,name,plain_code")
	q.Set("order", "code.asc")

	var companies []Company
	if err := s.client.Select(ctx, companiesTable, q, &companies); err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

// ListRegistrations returns all registrations for a company code, preferring
// the list_registrations remote procedure over a direct table scan.
func (s *Store) ListRegistrations(ctx context.Context, companyCode string) ([]Registration, error) {
	return lookup(ctx,
		func(ctx context.Context) ([]Registration, error) {
			var rows []Registration
			args := map[string]string{"p_company_code": companyCode}
			if err := s.client.RPC(ctx, rpcListRegistrations, args, &rows); err != nil {
				return nil, err
			}
			return rows, nil
		},
		func(ctx context.Context) ([]Registration, error) {
			return s.RegistrationsByCompany(ctx, companyCode)
		},
	)
}

// RegistrationsByCompany scans the registrations table directly for a scope.
func (s *Store) RegistrationsByCompany(ctx context.Context, companyCode string) ([]Registration, error) {
	q := url.Values{}
	q.Set("company_code", "eq."+companyCode)

	var rows []Registration
	if err := s.client.Select(ctx, registrationsTable, q, &rows); err != nil {
		return nil, fmt.Errorf("registrations for %s: %w", companyCode, err)
	}
	return rows, nil
}

// PlainCode resolves the customer-facing code for a company, preferring the
// get_plain_code remote procedure over a direct companies lookup.
func (s *Store) PlainCode(ctx context.Context, companyCode string) (*string, error) {
	return lookup(ctx,
		func(ctx context.Context) (*string, error) {
			var plain *string
			args := map[string]string{"p_code": companyCode}
			if err := s.client.RPC(ctx, rpcGetPlainCode, args, &plain); err != nil {
				return nil, err
			}
			return plain, nil
		},
		func(ctx context.Context) (*string, error) {
			q := url.Values{}
			q.Set("select", "plain_code")
			q.Set("code", "eq."+companyCode)
			q.Set("limit", "1")

			var rows []Company
			if err := s.client.Select(ctx, companiesTable, q, &rows); err != nil {
				return nil, fmt.Errorf("plain code for %s: %w", companyCode, err)
			}
			if len(rows) == 0 {
				return nil, nil
			}
			return rows[0].PlainCode, nil
		},
	)
}

// SetCustomerCode assigns a customer-facing code via the set_customer_code
// remote procedure. There is no table fallback for this operation.
func (s *Store) SetCustomerCode(ctx context.Context, companyCode, plainCode string) error {
	args := map[string]string{
		"p_company_code": companyCode,
		"p_plain_code":   plainCode,
	}
	if err := s.client.RPC(ctx, rpcSetCustomerCode, args, nil); err != nil {
		return fmt.Errorf("set customer code: %w", err)
	}
	return nil
}

// EnsureCompany returns the company with the given code, creating it when it
// does not exist yet.
func (s *Store) EnsureCompany(ctx context.Context, code, name string) (*Company, error) {
	q := url.Values{}
	q.Set("code", "eq."+code)
	q.Set("limit", "1")

	var rows []Company
	if err := s.client.Select(ctx, companiesTable, q, &rows); err != nil {
		return nil, fmt.Errorf("lookup company %s: %w", code, err)
	}
	if len(rows) > 0 {
		return &rows[0], nil
	}

	var created []Company
	if err := s.client.Insert(ctx, companiesTable, []Company{{Code: code, Name: name}}, &created); err != nil {
		return nil, fmt.Errorf("create company %s: %w", code, err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create company %s: backend returned no row", code)
	}
	return &created[0], nil
}

// Upsert inserts or updates one registration. Inserting returns the new id;
// updating returns 0. When the request carries a company code, the company is
// resolved (and created if missing) and linked to the record first.
func (s *Store) Upsert(ctx context.Context, req UpsertRequest) (int64, error) {
	switch r := req.(type) {
	case InsertRequest:
		rec := r.Registration
		if err := s.linkCompany(ctx, &rec, r.CompanyName); err != nil {
			return 0, err
		}
		rec.ID = 0

		var created []Registration
		if err := s.client.Insert(ctx, registrationsTable, []Registration{rec}, &created); err != nil {
			return 0, fmt.Errorf("insert registration: %w", err)
		}
		if len(created) == 0 {
			return 0, fmt.Errorf("insert registration: backend returned no row")
		}
		return created[0].ID, nil

	case UpdateRequest:
		rec := r.Registration
		if err := s.linkCompany(ctx, &rec, r.CompanyName); err != nil {
			return 0, err
		}
		rec.ID = 0 // never patch the identity column

		q := url.Values{}
		q.Set("id", "eq."+strconv.FormatInt(r.ID, 10))
		if err := s.client.Update(ctx, registrationsTable, q, rec); err != nil {
			return 0, fmt.Errorf("update registration %d: %w", r.ID, err)
		}
		return 0, nil

	default:
		return 0, fmt.Errorf("unsupported upsert request %T", req)
	}
}

func (s *Store) linkCompany(ctx context.Context, rec *Registration, companyName string) error {
	if rec.CompanyCode == "" {
		return nil
	}
	company, err := s.EnsureCompany(ctx, rec.CompanyCode, companyName)
	if err != nil {
		return err
	}
	rec.CompanyID = &company.ID
	return nil
}

// DeleteRegistration removes one registration by id.
func (s *Store) DeleteRegistration(ctx context.Context, id int64) error {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	if err := s.client.Delete(ctx, registrationsTable, q); err != nil {
		return fmt.Errorf("delete registration %d: %w", id, err)
	}
	return nil
}

// DeleteRegistrations removes many registrations by id.
func (s *Store) DeleteRegistrations(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	q := url.Values{}
	q.Set("id", "in.("+strings.Join(parts, ",")+")")
	if err := s.client.Delete(ctx, registrationsTable, q); err != nil {
		return fmt.Errorf("delete %d registrations: %w", len(ids), err)
	}
	return nil
}

// DeleteByCompany removes every registration in a company scope.
func (s *Store) DeleteByCompany(ctx context.Context, companyCode string) error {
	q := url.Values{}
	q.Set("company_code", "eq."+companyCode)
	if err := s.client.Delete(ctx, registrationsTable, q); err != nil {
		return fmt.Errorf("clear registrations for %s: %w", companyCode, err)
	}
	return nil
}

// InsertRegistrations persists a batch of registrations in one backend call.
func (s *Store) InsertRegistrations(ctx context.Context, recs []Registration) error {
	if len(recs) == 0 {
		return nil
	}
	if err := s.client.Insert(ctx, registrationsTable, recs, nil); err != nil {
		return fmt.Errorf("insert %d registrations: %w", len(recs), err)
	}
	return nil
}
