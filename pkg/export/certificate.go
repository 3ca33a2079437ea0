package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateKind selects the template used for rendering.
type CertificateKind string

const (
	KindDiploma     CertificateKind = "diploma"
	KindCertificate CertificateKind = "certificate"
	KindCAV         CertificateKind = "cav"
)

// CertificateData carries the fields stamped onto a template.
type CertificateData struct {
	StudentName   string
	LRN           string
	Strand        string
	Track         string
	SchoolYear    string
	Purpose       string
	SchoolName    string
	SchoolAddress string
	IssuedAt      time.Time
	SignatoryName string
	SignatoryRole string
}

// CertificateRenderer produces registrar documents from built-in templates.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render produces PDF bytes for the requested kind.
func (r *CertificateRenderer) Render(kind CertificateKind, data CertificateData) ([]byte, error) {
	if strings.TrimSpace(data.StudentName) == "" {
		return nil, fmt.Errorf("certificate requires a student name")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	r.renderHeader(pdf, data)

	switch kind {
	case KindDiploma:
		r.renderDiploma(pdf, data)
	case KindCertificate:
		r.renderCertificate(pdf, data)
	case KindCAV:
		r.renderCAV(pdf, data)
	default:
		return nil, fmt.Errorf("unknown certificate kind %q", kind)
	}

	r.renderSignatory(pdf, data)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	return buf.Bytes(), nil
}

func (r *CertificateRenderer) renderHeader(pdf *gofpdf.Fpdf, data CertificateData) {
	pdf.SetFont("Times", "B", 16)
	pdf.CellFormat(0, 9, strings.ToUpper(data.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 11)
	pdf.CellFormat(0, 6, data.SchoolAddress, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Times", "I", 11)
	pdf.CellFormat(0, 6, "Office of the Registrar", "", 1, "C", false, 0, "")
	pdf.Ln(10)
}

func (r *CertificateRenderer) renderDiploma(pdf *gofpdf.Fpdf, data CertificateData) {
	pdf.SetFont("Times", "B", 22)
	pdf.CellFormat(0, 12, "DIPLOMA", "", 1, "C", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Times", "", 12)
	pdf.MultiCell(0, 7, "This is to certify that", "", "C", false)
	pdf.SetFont("Times", "B", 16)
	pdf.CellFormat(0, 10, data.StudentName, "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 12)
	body := fmt.Sprintf("LRN %s has satisfactorily completed the requirements of the %s strand under the %s track for School Year %s and is hereby granted this diploma.",
		data.LRN, data.Strand, data.Track, data.SchoolYear)
	pdf.MultiCell(0, 7, body, "", "C", false)
	pdf.Ln(4)
	pdf.CellFormat(0, 7, fmt.Sprintf("Given this %d%s day of %s.", data.IssuedAt.Day(), daySuffix(data.IssuedAt.Day()), data.IssuedAt.Format("January 2006")), "", 1, "C", false, 0, "")
}

func (r *CertificateRenderer) renderCertificate(pdf *gofpdf.Fpdf, data CertificateData) {
	pdf.SetFont("Times", "B", 18)
	pdf.CellFormat(0, 12, "CERTIFICATION", "", 1, "C", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Times", "", 12)
	body := fmt.Sprintf("This is to certify that %s, LRN %s, is a bona fide student of this institution for School Year %s.",
		data.StudentName, data.LRN, data.SchoolYear)
	pdf.MultiCell(0, 7, body, "", "L", false)
	pdf.Ln(3)
	if data.Purpose != "" {
		pdf.MultiCell(0, 7, fmt.Sprintf("This certification is issued upon the request of the student for %s purposes.", data.Purpose), "", "L", false)
	}
	pdf.Ln(3)
	pdf.MultiCell(0, 7, fmt.Sprintf("Issued on %s.", data.IssuedAt.Format("January 2, 2006")), "", "L", false)
}

// renderCAV lays out the multi-page Certification, Authentication and
// Verification package: the certification page plus an authentication page.
func (r *CertificateRenderer) renderCAV(pdf *gofpdf.Fpdf, data CertificateData) {
	pdf.SetFont("Times", "B", 18)
	pdf.CellFormat(0, 12, "CERTIFICATION, AUTHENTICATION AND VERIFICATION", "", 1, "C", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Times", "", 12)
	body := fmt.Sprintf("This is to certify that the attached academic records of %s, LRN %s, %s strand, School Year %s, are true copies of records on file with this office.",
		data.StudentName, data.LRN, data.Strand, data.SchoolYear)
	pdf.MultiCell(0, 7, body, "", "L", false)
	pdf.Ln(3)
	pdf.MultiCell(0, 7, "The signatures appearing on the attached documents are genuine and the signatories were duly authorized at the time of signing.", "", "L", false)

	pdf.AddPage()
	r.renderHeader(pdf, data)
	pdf.SetFont("Times", "B", 14)
	pdf.CellFormat(0, 10, "AUTHENTICATION", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Times", "", 12)
	pdf.MultiCell(0, 7, fmt.Sprintf("Verified and authenticated for %s on %s.", data.Purpose, data.IssuedAt.Format("January 2, 2006")), "", "L", false)
}

func daySuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

func (r *CertificateRenderer) renderSignatory(pdf *gofpdf.Fpdf, data CertificateData) {
	pdf.Ln(20)
	pdf.SetFont("Times", "B", 12)
	pdf.CellFormat(0, 7, strings.ToUpper(data.SignatoryName), "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 11)
	pdf.CellFormat(0, 6, data.SignatoryRole, "", 1, "C", false, 0, "")
}
