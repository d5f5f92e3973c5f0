package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ResultsHandler serves result documents. Report rendering is out of scope
// for the reference backend, so each document is a one-page placeholder
// naming what was asked for.
type ResultsHandler struct{}

func (h *ResultsHandler) HandleTabulation(w http.ResponseWriter, r *http.Request) {
	writePlaceholderPDF(w, "tabulation-"+r.PathValue("year")+"-"+r.PathValue("exam")+"-"+r.PathValue("class"),
		"Tabulation sheet", r.PathValue("year"), r.PathValue("exam"), r.PathValue("class"))
}

func (h *ResultsHandler) HandleMeritList(w http.ResponseWriter, r *http.Request) {
	writePlaceholderPDF(w, "merit-list-"+r.PathValue("year")+"-"+r.PathValue("exam")+"-"+r.PathValue("class"),
		"Merit list", r.PathValue("year"), r.PathValue("exam"), r.PathValue("class"))
}

func (h *ResultsHandler) HandleMarkSheet(w http.ResponseWriter, r *http.Request) {
	writePlaceholderPDF(w, "mark-sheet-"+r.PathValue("student")+"-"+r.PathValue("exam"),
		"Mark sheet", r.PathValue("student"), r.PathValue("exam"))
}

func writePlaceholderPDF(w http.ResponseWriter, filename, title string, parts ...string) {
	doc := placeholderPDF(title + ": " + strings.Join(parts, " / "))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// placeholderPDF renders text on a single A4 page. The cross-reference
// table is omitted; readers rebuild it.
func placeholderPDF(text string) []byte {
	text = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	stream := fmt.Sprintf("BT /F1 14 Tf 72 770 Td (%s) Tj ET", text)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n")
	b.WriteString("2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n")
	b.WriteString("3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >> endobj\n")
	fmt.Fprintf(&b, "4 0 obj << /Length %d >> stream\n%s\nendstream endobj\n", len(stream), stream)
	b.WriteString("5 0 obj << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> endobj\n")
	b.WriteString("trailer << /Root 1 0 R >>\n%%EOF\n")
	return []byte(b.String())
}
