package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/export"
	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/services"
	"github.com/BerylCAtieno/finreport/internal/utils"
)

// FormField is the multipart field carrying the uploaded PDFs.
const FormField = "files"

type ReportHandler struct {
	service     services.ReportService
	exporter    *export.Exporter
	format      string
	filename    string
	maxFileSize int64
	maxFiles    int
	logger      *utils.Logger
}

func NewReportHandler(service services.ReportService, cfg *config.Config, logger *utils.Logger) *ReportHandler {
	return &ReportHandler{
		service:     service,
		exporter:    export.NewExporter(logger),
		format:      cfg.ResponseFormat,
		filename:    cfg.ReportFilename,
		maxFileSize: cfg.MaxFileSize,
		maxFiles:    cfg.MaxFiles,
		logger:      logger,
	}
}

func (h *ReportHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "Financial Research Tool Backend Running"})
}

// Extract accepts one or more PDFs and answers with the report as a workbook
// download or a JSON body, depending on the deployment's response format.
func (h *ReportHandler) Extract(w http.ResponseWriter, r *http.Request) {
	limit := h.maxFileSize*int64(h.maxFiles) + 1<<20

	if r.ContentLength > limit {
		h.respondError(w, utils.NewPayloadTooLargeError("Request exceeds the upload size limit"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, utils.NewPayloadTooLargeError("Request exceeds the upload size limit"))
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[FormField]
	if len(headers) == 0 {
		h.respondError(w, utils.NewBadRequestError("No files provided"))
		return
	}
	if len(headers) > h.maxFiles {
		h.respondError(w, utils.NewBadRequestError(fmt.Sprintf("At most %d files may be uploaded at once", h.maxFiles)))
		return
	}

	docs := make([]models.Document, 0, len(headers))
	for _, header := range headers {
		doc, err := h.readUpload(header)
		if err != nil {
			h.respondError(w, err)
			return
		}
		docs = append(docs, doc)
	}

	h.logger.Info("Extraction requested", "files", len(docs), "format", h.format)

	report, err := h.service.Process(r.Context(), docs)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.format == config.FormatJSON {
		h.respondJSON(w, http.StatusOK, export.Response(report))
		return
	}

	data, err := h.exporter.XLSX(report)
	if err != nil {
		h.logger.Error("Failed to build workbook", "error", err)
		h.respondError(w, utils.NewInternalError("Failed to build report"))
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write workbook", "error", err)
	}
}

func (h *ReportHandler) readUpload(header *multipart.FileHeader) (models.Document, error) {
	name := filepath.Base(header.Filename)

	contentType := determineContentType(name, header.Header.Get("Content-Type"))
	if contentType != "application/pdf" {
		return models.Document{}, utils.NewBadRequestError(fmt.Sprintf("%s: only PDF files are allowed", name))
	}

	if header.Size > h.maxFileSize {
		return models.Document{}, utils.NewPayloadTooLargeError(fmt.Sprintf("%s exceeds the %d byte limit", name, h.maxFileSize))
	}

	file, err := header.Open()
	if err != nil {
		return models.Document{}, utils.NewBadRequestError(fmt.Sprintf("%s: unreadable upload", name))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		return models.Document{}, utils.WrapInternalError("Failed to read file", err)
	}
	if int64(len(data)) > h.maxFileSize {
		return models.Document{}, utils.NewPayloadTooLargeError(fmt.Sprintf("%s exceeds the %d byte limit", name, h.maxFileSize))
	}
	if len(data) == 0 {
		return models.Document{}, utils.NewBadRequestError(fmt.Sprintf("%s is empty", name))
	}

	return models.Document{Name: name, Data: data}, nil
}

func (h *ReportHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.service.RecentRuns(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// determineContentType prefers the file extension over the client supplied header.
func determineContentType(filename, headerContentType string) string {
	if strings.ToLower(filepath.Ext(filename)) == ".pdf" {
		return "application/pdf"
	}

	switch strings.ToLower(strings.TrimSpace(headerContentType)) {
	case "application/pdf", "application/x-pdf":
		return "application/pdf"
	}

	return headerContentType
}

func (h *ReportHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *ReportHandler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	if appErr, ok := utils.AsAppError(err); ok {
		status = appErr.StatusCode
		message = appErr.Message
	}

	h.logger.Error("Request error", "status", status, "error", err)

	h.respondJSON(w, status, map[string]string{"error": message})
}
