package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vinacert/regadmin/internal/registry"
)

// fakeStore records pipeline persistence calls in order.
type fakeStore struct {
	calls      []string // "delete" or "insert"
	batchSizes []int
	failBatch  int // 1-based index of the insert call to fail, 0 for none
	inserted   []registry.Registration
}

func (f *fakeStore) DeleteByCompany(ctx context.Context, companyCode string) error {
	f.calls = append(f.calls, "delete")
	return nil
}

func (f *fakeStore) InsertRegistrations(ctx context.Context, recs []registry.Registration) error {
	f.calls = append(f.calls, "insert")
	f.batchSizes = append(f.batchSizes, len(recs))
	if f.failBatch > 0 && len(f.batchSizes) == f.failBatch {
		return errors.New("backend unavailable")
	}
	f.inserted = append(f.inserted, recs...)
	return nil
}

func csvFile(rows int) string {
	var b strings.Builder
	b.WriteString("brand_name,common_label,registration_no\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "Brand %d,Label %d,RG-%d\n", i, i, i)
	}
	return b.String()
}

func TestRun_BatchCount(t *testing.T) {
	tests := []struct {
		rows        int
		wantBatches []int
	}{
		{1, []int{1}},
		{500, []int{500}},
		{501, []int{500, 1}},
		{1200, []int{500, 500, 200}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d rows", tt.rows), func(t *testing.T) {
			store := &fakeStore{}
			p := NewPipeline(store, 500)

			summary, err := p.Run(context.Background(), "data.csv", strings.NewReader(csvFile(tt.rows)), "ACME", false)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(store.batchSizes) != len(tt.wantBatches) {
				t.Fatalf("persistence calls = %d, want %d", len(store.batchSizes), len(tt.wantBatches))
			}
			for i, want := range tt.wantBatches {
				if store.batchSizes[i] != want {
					t.Errorf("batch %d size = %d, want %d", i, store.batchSizes[i], want)
				}
			}
			if summary.Total != tt.rows || summary.Success != tt.rows || summary.Failed != 0 {
				t.Errorf("summary = %+v, want total=success=%d", summary, tt.rows)
			}
		})
	}
}

func TestRun_ReplaceModeDeletesOnceBeforeFirstBatch(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(store, 500)

	_, err := p.Run(context.Background(), "data.csv", strings.NewReader(csvFile(1200)), "ACME", true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"delete", "insert", "insert", "insert"}
	if len(store.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", store.calls, want)
	}
	for i := range want {
		if store.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", store.calls, want)
		}
	}
}

func TestRun_FailedBatchIsIsolated(t *testing.T) {
	store := &fakeStore{failBatch: 2}
	p := NewPipeline(store, 500)

	summary, err := p.Run(context.Background(), "data.csv", strings.NewReader(csvFile(1200)), "ACME", false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.batchSizes) != 3 {
		t.Fatalf("persistence calls = %d, want 3 despite batch failure", len(store.batchSizes))
	}
	if summary.Total != 1200 {
		t.Errorf("Total = %d, want 1200 regardless of failures", summary.Total)
	}
	if summary.Failed != 500 {
		t.Errorf("Failed = %d, want exactly the failed batch size", summary.Failed)
	}
	if summary.Success != 700 {
		t.Errorf("Success = %d, want 700", summary.Success)
	}
	if len(summary.Errors) != 1 {
		t.Errorf("Errors = %v, want one message per failed batch", summary.Errors)
	}
}

func TestRun_DropsRowsMissingMandatoryFields(t *testing.T) {
	csv := "brand_name,common_label\n" +
		"Brand A,Label A\n" +
		",Label B\n" + // no brand: dropped
		"Brand C,\n" + // no label: dropped
		"Brand D,Label D\n"

	store := &fakeStore{}
	p := NewPipeline(store, 500)

	summary, err := p.Run(context.Background(), "data.csv", strings.NewReader(csv), "ACME", false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Total != 2 {
		t.Errorf("Total = %d, want 2 (dropped rows are not counted)", summary.Total)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("inserted %d records, want 2", len(store.inserted))
	}
	for _, rec := range store.inserted {
		if rec.CompanyCode != "ACME" {
			t.Errorf("CompanyCode = %q, want the import scope", rec.CompanyCode)
		}
	}
}

func TestRun_LocalizedCSVWithBOM(t *testing.T) {
	csv := "\xEF\xBB\xBFThương hiệu,Tên chung,Số đăng ký\n" +
		"Brand A,Label A,RG-1\n"

	store := &fakeStore{}
	p := NewPipeline(store, 500)

	summary, err := p.Run(context.Background(), "upload.csv", strings.NewReader(csv), "ACME", false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Total != 1 || summary.Success != 1 {
		t.Fatalf("summary = %+v, want one mapped row", summary)
	}
	rec := store.inserted[0]
	if rec.BrandName != "Brand A" {
		t.Errorf("BrandName = %q, BOM or localized header not handled", rec.BrandName)
	}
	if rec.RegistrationNo == nil || *rec.RegistrationNo != "RG-1" {
		t.Errorf("RegistrationNo = %v, want RG-1", rec.RegistrationNo)
	}
}
