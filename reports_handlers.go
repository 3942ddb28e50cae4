package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const customCategorySentinel = "Outros"

type imageUpload struct {
	Name     string
	MimeType string
	Bytes    []byte
}

type reportSubmission struct {
	Description    string
	Category       string
	CustomCategory string
	Location       *ReportLocation
	LocationText   string
	Identified     bool
	UserName       string
	UserEmail      string
	ManualDate     string
	ManualTime     string
	Images         []imageUpload
}

func parseReportSubmission(c *gin.Context) (reportSubmission, error) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	var sub reportSubmission

	if strings.Contains(contentType, "application/json") {
		var body struct {
			Description    string   `json:"description"`
			Category       string   `json:"category"`
			CustomCategory string   `json:"customCategory"`
			Latitude       *float64 `json:"latitude"`
			Longitude      *float64 `json:"longitude"`
			LocationText   string   `json:"locationText"`
			Identified     bool     `json:"identified"`
			UserName       string   `json:"userName"`
			UserEmail      string   `json:"userEmail"`
			ManualDate     string   `json:"manualDate"`
			ManualTime     string   `json:"manualTime"`
			Images         []string `json:"images"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			return sub, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Corpo JSON inválido"}
		}
		sub.Description = body.Description
		sub.Category = body.Category
		sub.CustomCategory = body.CustomCategory
		if body.Latitude != nil && body.Longitude != nil {
			sub.Location = &ReportLocation{Latitude: *body.Latitude, Longitude: *body.Longitude}
		}
		sub.LocationText = body.LocationText
		sub.Identified = body.Identified
		sub.UserName = body.UserName
		sub.UserEmail = body.UserEmail
		sub.ManualDate = body.ManualDate
		sub.ManualTime = body.ManualTime
		for idx, raw := range body.Images {
			img, err := parseDataURLImage(raw, fmt.Sprintf("imagem-%d.jpg", idx+1))
			if err != nil {
				return sub, &apiError{Status: http.StatusBadRequest, Code: "invalid_image_data", Message: "Imagem inválida"}
			}
			sub.Images = append(sub.Images, img)
		}
		return sub, nil
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return sub, &apiError{Status: http.StatusBadRequest, Code: "invalid_multipart", Message: "Formulário inválido"}
	}

	sub.Description = c.PostForm("description")
	sub.Category = c.PostForm("category")
	sub.CustomCategory = c.PostForm("customCategory")
	sub.LocationText = c.PostForm("locationText")
	sub.Identified = c.PostForm("identified") == "true"
	sub.UserName = c.PostForm("userName")
	sub.UserEmail = c.PostForm("userEmail")
	sub.ManualDate = c.PostForm("manualDate")
	sub.ManualTime = c.PostForm("manualTime")

	latRaw := strings.TrimSpace(c.PostForm("latitude"))
	lngRaw := strings.TrimSpace(c.PostForm("longitude"))
	if latRaw != "" || lngRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr != nil || lngErr != nil {
			return sub, &apiError{Status: http.StatusBadRequest, Code: "invalid_location", Message: "Coordenadas inválidas"}
		}
		sub.Location = &ReportLocation{Latitude: lat, Longitude: lng}
	}

	files := c.Request.MultipartForm.File["images"]
	for idx, fileHeader := range files {
		opened, err := fileHeader.Open()
		if err != nil {
			return sub, err
		}
		data, readErr := io.ReadAll(io.LimitReader(opened, maxImageBytes+1))
		_ = opened.Close()
		if readErr != nil {
			return sub, readErr
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))

		name := strings.TrimSpace(fileHeader.Filename)
		if name == "" {
			name = fmt.Sprintf("imagem-%d.jpg", idx+1)
		}
		sub.Images = append(sub.Images, imageUpload{Name: name, MimeType: mimeType, Bytes: data})
	}
	return sub, nil
}

func parseDataURLImage(dataURL string, fallbackName string) (imageUpload, error) {
	parts := strings.SplitN(dataURL, ",", 2)
	if len(parts) != 2 {
		return imageUpload{}, fmt.Errorf("invalid data URL")
	}
	meta := parts[0]
	if !strings.HasPrefix(meta, "data:image/") || !strings.Contains(meta, ";base64") {
		return imageUpload{}, fmt.Errorf("invalid data URL mime")
	}
	mimeType := strings.TrimPrefix(strings.SplitN(meta, ";", 2)[0], "data:")
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return imageUpload{}, err
	}
	return imageUpload{Name: fallbackName, MimeType: mimeType, Bytes: decoded}, nil
}

func validateReportSubmission(sub reportSubmission) error {
	if strings.TrimSpace(sub.Description) == "" {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_description", Message: "A descrição não pode estar vazia."}
	}
	if strings.TrimSpace(sub.Category) == "" {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_category", Message: "Selecione uma categoria."}
	}
	if sub.Category == customCategorySentinel && strings.TrimSpace(sub.CustomCategory) == "" {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_category", Message: "Descreva a categoria personalizada."}
	}
	if sub.Identified && (strings.TrimSpace(sub.UserName) == "" || strings.TrimSpace(sub.UserEmail) == "") {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_identification", Message: "Denúncias identificadas exigem nome e e-mail."}
	}
	hasDate := strings.TrimSpace(sub.ManualDate) != ""
	hasTime := strings.TrimSpace(sub.ManualTime) != ""
	if hasDate != hasTime {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_manual_timestamp", Message: "Informe data e hora juntas."}
	}
	if sub.Location != nil {
		lat, lng := sub.Location.Latitude, sub.Location.Longitude
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return &apiError{Status: http.StatusBadRequest, Code: "invalid_location", Message: "Coordenadas inválidas"}
		}
	}
	if len(sub.Images) > maxImageCount {
		return &apiError{Status: http.StatusBadRequest, Code: "too_many_images", Message: fmt.Sprintf("Envie no máximo %d imagens.", maxImageCount)}
	}
	for _, img := range sub.Images {
		if len(img.Bytes) > maxImageBytes {
			return &apiError{Status: http.StatusBadRequest, Code: "image_too_large", Message: "Cada imagem deve ter no máximo 5MB."}
		}
		if _, ok := allowedImageTypes[img.MimeType]; !ok {
			return &apiError{Status: http.StatusBadRequest, Code: "invalid_image_type", Message: "Apenas imagens JPEG ou PNG são aceitas."}
		}
	}
	return nil
}

// recompressImages re-encodes JPEG uploads at a fixed quality. Decode
// failures leave the original bytes untouched.
func recompressImages(images []imageUpload) []imageUpload {
	out := make([]imageUpload, 0, len(images))
	for _, img := range images {
		if img.MimeType == "image/jpeg" {
			decoded, _, err := image.Decode(bytes.NewReader(img.Bytes))
			if err == nil {
				buffer := bytes.NewBuffer(nil)
				if encodeErr := jpeg.Encode(buffer, decoded, &jpeg.Options{Quality: jpegRecompressionQuality}); encodeErr == nil {
					img.Bytes = buffer.Bytes()
				}
			}
		}
		out = append(out, img)
	}
	return out
}

func sanitizeUploadFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "imagem"
	}
	return b.String()
}

// saveReportImages writes every upload under the report image namespace and
// returns their public URLs in upload order. A single failure removes the
// files already written, so a report never references a partial image set.
func (a *App) saveReportImages(ctx context.Context, images []imageUpload) ([]string, error) {
	if len(images) == 0 {
		return []string{}, nil
	}

	dir := filepath.Join(a.cfg.DataRoot, "uploads", uploadNamespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	base := strings.TrimRight(a.cfg.PublicBaseURL, "/")
	urls := make([]string, len(images))
	paths := make([]string, len(images))

	group, _ := errgroup.WithContext(ctx)
	for idx, img := range images {
		// Index keeps same-named uploads from the same millisecond apart.
		fileName := fmt.Sprintf("%d_%d_%s", time.Now().UnixMilli(), idx, sanitizeUploadFilename(img.Name))
		fullPath := filepath.Join(dir, fileName)
		paths[idx] = fullPath
		urls[idx] = fmt.Sprintf("%s/uploads/%s/%s", base, uploadNamespace, fileName)

		data := img.Bytes
		group.Go(func() error {
			return os.WriteFile(fullPath, data, 0o644)
		})
	}
	if err := group.Wait(); err != nil {
		for _, p := range paths {
			_ = os.Remove(p)
		}
		return nil, err
	}
	return urls, nil
}

func (a *App) submitReportHandler(c *gin.Context) {
	sub, err := parseReportSubmission(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if err := validateReportSubmission(sub); err != nil {
		writeAPIError(c, err)
		return
	}

	category := sub.Category
	if category == customCategorySentinel {
		category = strings.TrimSpace(sub.CustomCategory)
	}

	var createdAt time.Time
	if strings.TrimSpace(sub.ManualDate) != "" {
		parsed, parseErr := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(sub.ManualDate)+" "+strings.TrimSpace(sub.ManualTime), a.location)
		if parseErr != nil {
			writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_manual_timestamp", Message: "Data ou hora inválida."})
			return
		}
		createdAt = parsed
	}

	imageURLs, err := a.saveReportImages(c.Request.Context(), recompressImages(sub.Images))
	if err != nil {
		a.log.Error("report image save failed", "error", err)
		writeAPIError(c, &apiError{Status: http.StatusInternalServerError, Code: "image_save_failed", Message: "Falha ao salvar as imagens. Tente novamente."})
		return
	}

	report := Report{
		Description:  strings.TrimSpace(sub.Description),
		Category:     category,
		Location:     sub.Location,
		LocationText: strings.TrimSpace(sub.LocationText),
		ImageURLs:    imageURLs,
		ReportType:   "anonymous",
		CreatedAt:    createdAt,
	}
	if sub.Identified {
		report.ReportType = "identified"
		report.UserInfo = UserInfo{Name: strings.TrimSpace(sub.UserName), Email: strings.TrimSpace(sub.UserEmail)}
	}

	created, err := a.createReport(c.Request.Context(), report)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	a.log.Info("report created", "id", created.ID, "category", created.Category, "type", created.ReportType)
	c.JSON(http.StatusCreated, created)
}

// publicReportDetailHandler looks a complaint up by its code so a citizen
// can check its status after submitting.
func (a *App) publicReportDetailHandler(c *gin.Context) {
	reportID := strings.TrimSpace(c.Param("id"))
	report, err := a.getReportByID(c.Request.Context(), reportID)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if report == nil {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "report_not_found", Message: "Denúncia não encontrada"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *App) publicMapReportsHandler(c *gin.Context) {
	reports, err := a.listMapReports(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildMapMarkers(reports, a.location))
}

func (a *App) adminReportsHandler(c *gin.Context) {
	page, err := a.adminListReportsPage(c.Request.Context(), ReportPageRequest{
		AfterToken: strings.TrimSpace(c.Query("page_token")),
	})
	if err != nil {
		writeAPIError(c, err)
		return
	}

	response := gin.H{
		"reports":     buildReportListRows(page.Reports, a.location),
		"pageSize":    page.PageSize,
		"totalCount":  page.TotalCount,
		"hasNextPage": page.HasNext,
	}
	if page.HasNext {
		response["nextPageToken"] = page.LastToken
	}
	c.JSON(http.StatusOK, response)
}

func (a *App) adminUpdateStatusHandler(c *gin.Context) {
	reportID := c.Param("id")

	var payload struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Corpo da requisição inválido"})
		return
	}

	updated, err := a.adminUpdateReportStatus(c.Request.Context(), reportID, payload.Status)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	if session, sessionErr := getAdminSession(c); sessionErr == nil {
		a.log.Info("report status updated", "id", reportID, "status", payload.Status, "admin", session.Email)
	}
	c.JSON(http.StatusOK, updated)
}
