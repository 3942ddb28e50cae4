package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
)

var statusDisplayNames = map[string]string{
	"pendente":   "Pendente",
	"em_analise": "Em Análise",
	"aprovada":   "Aprovada",
	"resolvida":  "Resolvida",
	"rejeitada":  "Rejeitada",
}

func statusDisplayName(status string) string {
	if name, ok := statusDisplayNames[status]; ok {
		return name
	}
	return status
}

func exportFileName(extension string, now time.Time) string {
	return fmt.Sprintf("relatorio_denuncias_%s.%s", now.Format("2006-01-02"), extension)
}

func exportLocationCells(r Report) (string, string) {
	if r.HasStructuredLocation() {
		return fmt.Sprintf("%f", r.Location.Latitude), fmt.Sprintf("%f", r.Location.Longitude)
	}
	return "N/A", "N/A"
}

func buildReportsCSV(reports []Report, loc *time.Location) (string, error) {
	buffer := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buffer)

	headers := []string{"ID", "Data/Hora", "Categoria", "Status", "Descrição", "Latitude", "Longitude", "Nome do Usuário", "Email do Usuário", "URLs das Imagens"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}

	for _, report := range reports {
		lat, lng := exportLocationCells(report)
		name, email := "N/A", "N/A"
		if report.Identified() {
			name, email = report.UserInfo.Name, report.UserInfo.Email
		}
		imageURLs := "N/A"
		if len(report.ImageURLs) > 0 {
			imageURLs = strings.Join(report.ImageURLs, "; ")
		}
		row := []string{
			report.ID,
			formatTimestamp(report.CreatedAt, loc),
			report.Category,
			report.EffectiveStatus(),
			report.Description,
			lat,
			lng,
			name,
			email,
			imageURLs,
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

type statusSummaryRow struct {
	Status  string
	Label   string
	Count   int
	Percent int
}

// buildStatusSummary counts reports per status over the full status order.
// Percentages are rounded to whole numbers; an empty set yields all zeros.
func buildStatusSummary(reports []Report) []statusSummaryRow {
	counts := map[string]int{}
	for _, report := range reports {
		counts[report.EffectiveStatus()]++
	}

	rows := make([]statusSummaryRow, 0, len(reportStatuses))
	for _, status := range reportStatuses {
		percent := 0
		if len(reports) > 0 {
			percent = int(math.Round(float64(counts[status]) * 100 / float64(len(reports))))
		}
		rows = append(rows, statusSummaryRow{
			Status:  status,
			Label:   statusDisplayName(status),
			Count:   counts[status],
			Percent: percent,
		})
	}
	return rows
}

func filterEchoLine(label, value, allWord string) string {
	if value == "" || value == "all" {
		value = allWord
	}
	return fmt.Sprintf("%s: %s", label, value)
}

func pdfLocationCell(r Report) string {
	if r.HasStructuredLocation() {
		return fmt.Sprintf("Lat: %.5f, Lon: %.5f", r.Location.Latitude, r.Location.Longitude)
	}
	if r.LocationText != "" {
		return r.LocationText
	}
	return "N/A"
}

func pdfSubmitterCell(r Report) string {
	if r.Identified() {
		return userLabel(r)
	}
	return "Anônimo"
}

func buildReportsPDF(reports []Report, filters map[string]any, loc *time.Location) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Relatório de Denúncias Ambientais"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Gerado em: %s", time.Now().In(loc).Format(displayTimestampLayout))))
	pdf.Ln(6)

	start, _ := filters["start_date"].(string)
	end, _ := filters["end_date"].(string)
	period := "Todo o período"
	if start != "" || end != "" {
		if start == "" {
			start = "..."
		}
		if end == "" {
			end = "..."
		}
		period = fmt.Sprintf("%s a %s", start, end)
	}
	category, _ := filters["category"].(string)
	status, _ := filters["status"].(string)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Período: %s", period)))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(filterEchoLine("Categoria", category, "Todas")))
	pdf.Ln(6)
	statusValue := status
	if statusValue != "" && statusValue != "all" {
		statusValue = statusDisplayName(statusValue)
	}
	pdf.Cell(0, 6, tr(filterEchoLine("Status", statusValue, "Todos")))
	pdf.Ln(10)

	summary := buildStatusSummary(reports)
	withLocation := 0
	for _, report := range reports {
		if report.HasStructuredLocation() {
			withLocation++
		}
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Resumo")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Total de denúncias: %d", len(reports))))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Com localização georreferenciada: %d", withLocation)))
	pdf.Ln(8)

	const maxBarWidth = 60.0
	for _, row := range summary {
		pdf.Cell(45, 6, tr(row.Label))
		pdf.Cell(30, 6, fmt.Sprintf("%d (%d%%)", row.Count, row.Percent))

		barWidth := maxBarWidth * float64(row.Percent) / 100
		x, y := pdf.GetX(), pdf.GetY()
		pdf.SetFillColor(74, 124, 89)
		if barWidth > 0 {
			pdf.Rect(x, y+1, barWidth, 4, "F")
		}
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("Denúncias"))
	pdf.Ln(9)

	for _, report := range reports {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.Cell(0, 5, tr(fmt.Sprintf("%s - %s", formatTimestamp(report.CreatedAt, loc), report.Category)))
		pdf.Ln(5)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(truncateWithEllipsis(report.Description, pdfDescriptionLimit)), "", "L", false)
		pdf.Cell(0, 5, tr(fmt.Sprintf("Status: %s | Local: %s | %s",
			statusDisplayName(report.EffectiveStatus()), pdfLocationCell(report), pdfSubmitterCell(report))))
		pdf.Ln(8)
	}

	buffer := bytes.NewBuffer(nil)
	if err := pdf.Output(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (a *App) exportFilteredReports(c *gin.Context) ([]Report, map[string]any, bool) {
	filters := filtersFromQuery(
		c.Query("start_date"),
		c.Query("end_date"),
		c.Query("category"),
		c.Query("status"),
	)
	reports, err := a.adminListReports(c.Request.Context(), filters)
	if err != nil {
		writeAPIError(c, err)
		return nil, nil, false
	}
	if len(reports) == 0 {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "no_reports_to_export", Message: "Não há denúncias para exportar com os filtros selecionados."})
		return nil, nil, false
	}
	return reports, filters, true
}

func (a *App) exportCSVHandler(c *gin.Context) {
	reports, _, ok := a.exportFilteredReports(c)
	if !ok {
		return
	}

	data, err := buildReportsCSV(reports, a.location)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	fileName := exportFileName("csv", time.Now().In(a.location))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(data))
}

func (a *App) exportPDFHandler(c *gin.Context) {
	reports, filters, ok := a.exportFilteredReports(c)
	if !ok {
		return
	}

	data, err := buildReportsPDF(reports, filters, a.location)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	fileName := exportFileName("pdf", time.Now().In(a.location))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "application/pdf", data)
}
