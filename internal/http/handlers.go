package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"mappa/internal/core"
	"mappa/internal/ingest"
	"mappa/internal/log"
)

const maxUploadBytes = 32 << 20

const uploadPreviewRows = 10

type mapRowRequest struct {
	RowIndex *int   `json:"row_index"`
	Category string `json:"category"`
}

type addCategoryRequest struct {
	Name    string `json:"name"`
	Confirm bool   `json:"confirm"`
}

type resetRequest struct {
	SourceFile string `json:"source_file"`
}

// handleUpload accepts a multipart CSV or XLSX file and makes it the active
// snapshot. The response echoes the first rows so clients can render a preview
// without a second request.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		slog.WarnContext(r.Context(), "Upload rejected",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldOperation, log.OpUpload,
			log.FieldError, err)
		writeError(w, http.StatusBadRequest, "Request must include a file field")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	parsed, err := ingest.ReadSnapshot(name, file)
	if err != nil {
		slog.WarnContext(r.Context(), "Upload parse failed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldOperation, log.OpUpload,
			log.FieldSourceFile, name,
			log.FieldError, err)
		writeServiceError(w, err)
		return
	}

	snap, err := s.mapping.Upload(r.Context(), parsed)
	if err != nil {
		slog.ErrorContext(r.Context(), "Upload failed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldOperation, log.OpUpload,
			log.FieldSourceFile, name,
			log.FieldError, err)
		writeServiceError(w, err)
		return
	}

	preview := snap.Rows
	if len(preview) > uploadPreviewRows {
		preview = preview[:uploadPreviewRows]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("File %q uploaded successfully", snap.SourceFile),
		"source_file":  snap.SourceFile,
		"total_rows":   snap.TotalRows,
		"mapped_count": snap.MappedCount,
		"rows":         preview,
	})
}

// handleProgress returns the full active snapshot, or an empty one when
// nothing has been uploaded yet.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	snap, err := s.mapping.Progress()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMapRow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req mapRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.RowIndex == nil {
		writeError(w, http.StatusBadRequest, "row_index is required")
		return
	}

	res, err := s.mapping.MapRow(r.Context(), *req.RowIndex, req.Category)
	if err != nil {
		slog.WarnContext(r.Context(), "Map request rejected",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldOperation, log.OpMap,
			log.FieldRowIndex, *req.RowIndex,
			log.FieldError, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Row %d mapped to %q", res.Row.Index, *res.Row.Category),
		"row":          res.Row,
		"mapped_count": res.MappedCount,
	})
}

// handleCategories lists the registry on GET and runs the two-step add
// protocol on POST.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"categories": s.mapping.Categories()})
	case http.MethodPost:
		s.handleAddCategory(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := s.mapping.AddCategory(r.Context(), req.Name, req.Confirm)
	var pending *core.CorrectionPendingError
	switch {
	case errors.As(err, &pending):
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":     "correction_pending",
			"original":   pending.Candidate,
			"suggestion": pending.Suggestion,
			"detail":     pending.Error(),
		})
	case err != nil:
		writeServiceError(w, err)
	case res.Added:
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":     "added",
			"name":       res.Name,
			"categories": res.Categories,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "exists",
			"name":       res.Name,
			"categories": res.Categories,
		})
	}
}

// handleAutoMap runs a full auto-map pass synchronously and reports what it
// did, including per-row failures.
func (s *Server) handleAutoMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	report, err := s.automap.Run(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	sum, err := s.summaries.Summarize(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary failed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldOperation, log.OpSummary,
			log.FieldError, err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleDeleteFile removes one stored file by name: DELETE /files/{name}.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/files/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	if err := s.mapping.ResetFile(r.Context(), name); err != nil {
		if errors.Is(err, core.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("File %q not found", name))
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File %q deleted", name),
	})
}

// handleReset clears the named file, defaulting to the active one when the
// body names none.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req resetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	name := req.SourceFile
	if name == "" {
		if !s.mapping.HasFile() {
			writeError(w, http.StatusNotFound, "No file uploaded. Please upload a CSV first.")
			return
		}
		snap, err := s.mapping.Progress()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		name = snap.SourceFile
	}

	if err := s.mapping.ResetFile(r.Context(), name); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File %q reset", name),
	})
}
