package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kirillkom/document-ledger/internal/config"
	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/observability/metrics"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxJSONBody     = 1 << 20
)

// Services groups the inbound ports the router dispatches to.
type Services struct {
	Ingestor  ports.DocumentIngestor
	Reader    ports.DocumentReader
	Reprocess ports.ReprocessCoordinator
	Ledger    ports.LedgerService
	Bundler   ports.EvidenceBundler
	Splitter  ports.DocumentSplitter
	Advisor   ports.FixAdvisor
	Notices   ports.NoticeBoard
}

type Router struct {
	cfg      config.Config
	services Services
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, services Services, httpMetrics *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:      cfg,
		services: services,
		metrics:  httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/documents", rt.uploadDocuments)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.removeDocument)
	mux.HandleFunc("POST /v1/documents/{id}/retry", rt.retryDocument)
	mux.HandleFunc("POST /v1/documents/{id}/password", rt.submitPassword)
	mux.HandleFunc("POST /v1/documents/{id}/post", rt.postDocument)
	mux.HandleFunc("POST /v1/documents/{id}/split", rt.splitDocument)
	mux.HandleFunc("POST /v1/documents/{id}/fix-suggestion", rt.suggestFix)
	mux.HandleFunc("POST /v1/documents/unlock", rt.batchUnlock)
	mux.HandleFunc("POST /v1/documents/reprocess", rt.reprocessFailed)
	mux.HandleFunc("POST /v1/documents/bundle", rt.bundleDocuments)

	mux.HandleFunc("GET /v1/ledger", rt.listLedger)
	mux.HandleFunc("GET /v1/ledger/export.xlsx", rt.exportLedger)
	mux.HandleFunc("GET /v1/ledger/mappings", rt.getMappings)
	mux.HandleFunc("PUT /v1/ledger/mappings", rt.putMappings)

	mux.HandleFunc("GET /v1/notice", rt.getNotice)
	mux.HandleFunc("DELETE /v1/notice", rt.clearNotice)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(rt.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	source := domain.DocumentSource(strings.TrimSpace(r.FormValue("source")))

	if len(headers) == 1 {
		doc, err := rt.ingestPart(r, headers[0], source)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"documents": []*domain.Document{doc}})
		return
	}

	// Each part is ingested on its own; one bad file never drops the rest.
	docs := make([]*domain.Document, 0, len(headers))
	results := make([]uploadResult, 0, len(headers))
	failed := 0
	for _, header := range headers {
		doc, err := rt.ingestPart(r, header, source)
		if err != nil {
			failed++
			slog.Warn("upload_part_failed", "file", header.Filename, "error", err)
			results = append(results, uploadResult{Name: header.Filename, Status: mapErrorToHTTPStatus(err), Error: err.Error()})
			continue
		}
		docs = append(docs, doc)
		results = append(results, uploadResult{Name: header.Filename, Status: http.StatusAccepted, Document: doc})
	}

	status := http.StatusAccepted
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]any{"documents": docs, "results": results})
}

type uploadResult struct {
	Name     string           `json:"name"`
	Status   int              `json:"status"`
	Document *domain.Document `json:"document,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (rt *Router) ingestPart(r *http.Request, header *multipart.FileHeader, source domain.DocumentSource) (*domain.Document, error) {
	file, err := header.Open()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open upload", fmt.Errorf("%s: %w", header.Filename, err))
	}
	defer func() {
		_ = file.Close()
	}()
	return rt.services.Ingestor.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), source, file)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs := rt.services.Reader.List()
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filtered := docs[:0]
		for _, doc := range docs {
			if string(doc.Status) == status {
				filtered = append(filtered, doc)
			}
		}
		docs = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.services.Reader.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) removeDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.Ingestor.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) retryDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.services.Reprocess.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) submitPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	doc, err := rt.services.Reprocess.SubmitPassword(r.Context(), r.PathValue("id"), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) batchUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	results, err := rt.services.Reprocess.BatchUnlock(r.Context(), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"results": results})
}

func (rt *Router) reprocessFailed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	results, err := rt.services.Reprocess.ReprocessFailed(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"results": results})
}

func (rt *Router) postDocument(w http.ResponseWriter, r *http.Request) {
	var opts domain.PostOptions
	if err := decodeJSON(r, &opts, true); err != nil {
		writeError(w, err)
		return
	}
	entry, err := rt.services.Ledger.Post(r.Context(), r.PathValue("id"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (rt *Router) splitDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromPage int    `json:"from_page"`
		ToPage   int    `json:"to_page"`
		NewName  string `json:"new_name"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	doc, err := rt.services.Splitter.Split(r.Context(), r.PathValue("id"), req.FromPage, req.ToPage, req.NewName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) suggestFix(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.services.Advisor.SuggestFix(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) bundleDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	file, archive, manifest, err := rt.services.Bundler.Bundle(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		file.Content = base64.StdEncoding.EncodeToString(archive)
		writeJSON(w, http.StatusOK, map[string]any{"file": file, "manifest": manifest})
		return
	}
	writeAttachment(w, file.FileType, file.FileName, archive)
}

func (rt *Router) listLedger(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": rt.services.Ledger.Entries()})
}

func (rt *Router) exportLedger(w http.ResponseWriter, r *http.Request) {
	raw, err := rt.services.Ledger.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, xlsxContentType, "ledger.xlsx", raw)
}

func (rt *Router) getMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := rt.services.Ledger.Mappings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

func (rt *Router) putMappings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mappings []domain.LedgerMapping `json:"mappings"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	mappings, err := rt.services.Ledger.SaveMappings(r.Context(), req.Mappings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

func (rt *Router) getNotice(w http.ResponseWriter, _ *http.Request) {
	notice, ok := rt.services.Notices.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, notice)
}

func (rt *Router) clearNotice(w http.ResponseWriter, _ *http.Request) {
	rt.services.Notices.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON reads a bounded JSON body. allowEmpty accepts a missing body.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAttachment(w http.ResponseWriter, contentType, fileName string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
