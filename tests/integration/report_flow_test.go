package integration

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestReportFlow_MonthlyFormats(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "relatorio@test.com")

	month := today()
	first := month.AddDate(0, 0, 1-month.Day())
	paidID := app.createBill(t, token, "Luz", "120.00", first)
	app.createBill(t, token, "Gas", "35.50", first.AddDate(0, 0, 1))
	app.createBill(t, token, "Fora do mes", "10.00", first.AddDate(0, 1, 0))

	rec := app.request("PATCH", "/api/v1/bills/"+paidID+"/status", `{"status":"paid"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status update failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.upload(t, "/api/v1/bills/"+paidID+"/proof", "comprovante.pdf", invoicePDF, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", rec.Code, rec.Body.String())
	}

	base := fmt.Sprintf("/api/v1/reports/monthly/%d/%d/", first.Year(), int(first.Month()))
	wantName := fmt.Sprintf("relatorio-%04d-%02d", first.Year(), int(first.Month()))

	t.Run("csv", func(t *testing.T) {
		rec := app.request("GET", base+"csv", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("csv failed: %d %s", rec.Code, rec.Body.String())
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, wantName+".csv") {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
		lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(rec.Body.String(), "\ufeff")), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), rec.Body.String())
		}
		if !strings.Contains(lines[1], "Luz") || !strings.Contains(lines[2], "Gas") {
			t.Errorf("expected rows ordered by due date, got %q / %q", lines[1], lines[2])
		}
	})

	t.Run("csv_status_filter", func(t *testing.T) {
		rec := app.request("GET", base+"csv?status=pending", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("csv failed: %d %s", rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "Luz") {
			t.Error("paid bill should be filtered out")
		}
	})

	t.Run("pdf", func(t *testing.T) {
		rec := app.request("GET", base+"pdf", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("pdf failed: %d %s", rec.Code, rec.Body.String())
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
			t.Error("expected a PDF document")
		}
	})

	t.Run("xlsx", func(t *testing.T) {
		rec := app.request("GET", base+"xlsx", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("xlsx failed: %d %s", rec.Code, rec.Body.String())
		}
		if _, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len())); err != nil {
			t.Errorf("expected an xlsx (zip) workbook: %v", err)
		}
	})

	t.Run("zip_includes_proof", func(t *testing.T) {
		rec := app.request("GET", base+"zip", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("zip failed: %d %s", rec.Code, rec.Body.String())
		}
		zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
		if err != nil {
			t.Fatalf("invalid zip: %v", err)
		}
		var hasPDF, hasProof bool
		for _, f := range zr.File {
			if f.Name == wantName+".pdf" {
				hasPDF = true
			}
			if strings.Contains(f.Name, "comprovante") {
				hasProof = true
			}
		}
		if !hasPDF || !hasProof {
			t.Errorf("expected report pdf and proof in archive, got %d entries", len(zr.File))
		}
	})

	t.Run("unknown_format", func(t *testing.T) {
		rec := app.request("GET", base+"docx", "", token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
