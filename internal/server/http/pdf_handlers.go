package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// downloadPDFRequest is the JSON request body for fetching a paper's PDF.
type downloadPDFRequest struct {
	PDFURL string `json:"pdf_url"`
}

// uploadPDF handles POST /api/upload-pdf. The file arrives as multipart
// field "pdf"; it is stored under a timestamped name and its abstract
// extracted in-line.
func (s *Server) uploadPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PDF file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No PDF file provided")
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No PDF file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	stored, err := s.uploads.SaveUpload(header.Filename, content)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Invalid filename")
			return
		}
		s.requestLogger(r.Context()).Error().Err(err).Str("filename", header.Filename).Msg("upload store failed")
		writeError(w, http.StatusInternalServerError, "Failed to store PDF")
		return
	}

	abstract := s.abstracts.ExtractAbstract(content)

	s.recordPDF(ctx, &domain.PDFFile{
		Filename:    stored.Filename,
		Filepath:    stored.Path,
		Abstract:    abstract,
		SizeBytes:   stored.SizeBytes,
		ContentHash: stored.ContentHash,
	})

	resp := uploadResponse{
		Abstract:  abstract,
		Filename:  stored.Filename,
		Timestamp: time.Now().UTC().Format(apiTimeFormat),
	}
	writeJSON(w, http.StatusOK, wrap(resp, resp.Timestamp))
}

// downloadPDF handles POST /api/download-pdf/{paperID}. It fetches the PDF
// at the supplied URL into artifact storage and extracts its abstract.
func (s *Server) downloadPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paperID := chi.URLParam(r, "paperID")

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req downloadPDFRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if strings.TrimSpace(req.PDFURL) == "" {
		writeError(w, http.StatusBadRequest, "PDF URL is required")
		return
	}

	res, err := s.fetcher.Fetch(ctx, req.PDFURL, paperID)
	if err != nil {
		s.requestLogger(ctx).Warn().Err(err).Str("paper_id", paperID).Msg("artifact fetch failed")
		writeError(w, http.StatusBadRequest, "Failed to download PDF")
		return
	}

	abstract := s.abstracts.ExtractAbstract(res.Content)

	s.recordPDF(ctx, &domain.PDFFile{
		PaperID:     paperID,
		Filename:    paperID + ".pdf",
		Filepath:    res.Path,
		Abstract:    abstract,
		SizeBytes:   res.SizeBytes,
		ContentHash: res.ContentHash,
	})

	writeJSON(w, http.StatusOK, wrap(downloadResponse{
		Success:  true,
		Abstract: abstract,
		Filepath: res.Path,
	}, ""))
}

// recordPDF persists artifact bookkeeping. Failures are logged, never
// surfaced: the artifact is already on disk and the caller has its answer.
func (s *Server) recordPDF(ctx context.Context, file *domain.PDFFile) {
	if err := s.pdfRepo.Save(ctx, file); err != nil {
		s.requestLogger(ctx).Error().Err(err).Str("filename", file.Filename).Msg("pdf record save failed")
	}
}
