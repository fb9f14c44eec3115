package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"campus/config"
	courseModels "campus/models/course"

	"github.com/jung-kurt/gofpdf"
)

// RenderCertificatePDF renders the certificate to a landscape A4 PDF and
// returns the cached file path. Rendering is lazy: issuance stores structured
// data only, the document is produced on first download and reused after. A
// render failure is surfaced to the caller and retried on the next retrieval;
// it never affects the certificate row.
func RenderCertificatePDF(cert *courseModels.Certificate, learnerName, courseTitle, author string) (string, error) {
	dir := config.AppConfig.CertCacheDir
	path := filepath.Join(dir, fmt.Sprintf("certificate_%s.pdf", cert.CertificateNumber))

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("certificate cache dir: %w", err)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	w, h := pdf.GetPageSize()

	// Double border
	pdf.SetDrawColor(51, 102, 204)
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, w-20, h-20, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(13, 13, w-26, h-26, "D")

	pdf.SetTextColor(51, 102, 204)
	pdf.SetFont("Helvetica", "B", 32)
	pdf.SetXY(0, 35)
	pdf.CellFormat(w, 14, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(w, 10, "This is to certify that", "", 1, "C", false, 0, "")

	pdf.SetTextColor(51, 102, 204)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.CellFormat(w, 16, learnerName, "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(w, 10, "has successfully completed the course", "", 1, "C", false, 0, "")

	pdf.SetTextColor(51, 102, 204)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(w, 14, courseTitle, "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(w, 14, fmt.Sprintf("Issued on: %s", cert.IssuedAt.Format("January 02, 2006")), "", 1, "C", false, 0, "")

	if author != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(w, 16, author, "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(w, 5, "Course Instructor", "", 1, "C", false, 0, "")
	}

	pdf.SetTextColor(128, 128, 128)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(0, h-28)
	pdf.CellFormat(w, 5, fmt.Sprintf("Certificate ID: %s", cert.CertificateNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(w, 5, "Campus - verify this certificate at /certificates/verify", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		// Leave no partial file behind so the next attempt starts clean.
		os.Remove(path)
		return "", fmt.Errorf("render certificate pdf: %w", err)
	}

	return path, nil
}
