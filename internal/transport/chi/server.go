package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clariq-health/docqa/internal/domain"
	chatuc "github.com/clariq-health/docqa/internal/usecase/chat"
	healthuc "github.com/clariq-health/docqa/internal/usecase/health"
	ingestuc "github.com/clariq-health/docqa/internal/usecase/ingest"
)

// maxUploadBytes bounds multipart uploads (50 MiB, same as the original API).
const maxUploadBytes = 50 << 20

// multipartOverhead leaves room for boundaries and part headers when bounding
// the whole request body around the file limit.
const multipartOverhead = 4 << 10

// Error codes returned to clients.
const (
	codeBadRequest       = "bad_request"
	codePayloadTooLarge  = "payload_too_large"
	codeExtractionFailed = "extraction_failed"
	codeRateLimited      = "rate_limited"
	codeEmbeddingError   = "embedding_provider_error"
	codeCompletionError  = "completion_provider_error"
	codeIndexUnavailable = "index_unavailable"
	codeInternalError    = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the chat and document API over chi.
type Server struct {
	chat          *chatuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxUpload     int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	chat *chatuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:      chat,
		ingest:    ingest,
		health:    health,
		logger:    logger,
		maxUpload: maxUploadBytes,
	}
	s.errorHandlers = []errorHandler{
		rateLimitHandler,
		sentinelHandler(domain.ErrExtraction, http.StatusBadRequest, codeExtractionFailed),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrCompletion, http.StatusBadGateway, codeCompletionError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
	}
	return s
}

// Routes registers all API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/chat", s.handleChat)
	r.Post("/chat/stream", s.handleChatStream)
	r.Post("/documents/upload", s.handleUpload)
	r.Post("/documents/reindex", s.handleReindex)
	r.Get("/documents/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// chatRequest is the body of POST /chat and POST /chat/stream.
type chatRequest struct {
	Message string               `json:"message"`
	History []domain.ChatMessage `json:"history,omitempty"`
	UseRAG  *bool                `json:"use_rag,omitempty"`
}

type chatResponse struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	answer, sources, err := s.chat.Answer(r.Context(), req.Message, req.History, useRAG(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response: answer,
		Sources:  orEmpty(sources),
	})
}

// handleChatStream streams the answer as server-sent events: one
// data: {"chunk": ...} line per text segment, then a final
// data: {"done": true, "sources": [...]} event.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming unsupported")
		return
	}

	ch, sources, err := s.chat.Stream(r.Context(), req.Message, req.History, useRAG(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for chunk := range ch {
		if chunk.Err != nil {
			writeSSE(w, map[string]any{"error": safeDomainMessage(chunk.Err)})
			flusher.Flush()
			return
		}
		writeSSE(w, map[string]any{"chunk": chunk.Content})
		flusher.Flush()
	}

	writeSSE(w, map[string]any{"done": true, "sources": orEmpty(sources)})
	flusher.Flush()
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return chatRequest{}, false
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "message is required")
		return chatRequest{}, false
	}
	return req, true
}

func useRAG(req chatRequest) bool {
	return req.UseRAG == nil || *req.UseRAG
}

type uploadResponse struct {
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
	Status        string `json:"status"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUpload))
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	// Read one byte past the limit so an exactly-truncated prefix is never
	// mistaken for a complete document.
	raw, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "read upload: "+err.Error())
		return
	}
	if int64(len(raw)) > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.maxUpload))
		return
	}

	n, err := s.ingest.SaveAndIngest(r.Context(), raw, header.Filename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename:      header.Filename,
		ChunksCreated: n,
		Status:        "success",
	})
}

type reindexFileResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
}

type reindexResponse struct {
	Status      string              `json:"status"`
	TotalChunks int                 `json:"total_chunks"`
	Files       []reindexFileResult `json:"files"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ingest.ReindexAll(r.Context(), "")
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := reindexResponse{
		Status:      summary.Status,
		TotalChunks: summary.TotalChunks,
		Files:       make([]reindexFileResult, 0, len(summary.Files)),
	}
	for _, f := range summary.Files {
		item := reindexFileResult{Filename: f.Filename, Chunks: f.Chunks}
		if f.Err != nil {
			item.Error = safeDomainMessage(f.Err)
		}
		resp.Files = append(resp.Files, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ingest.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeSSE(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrExtraction,
		domain.ErrEmbedding,
		domain.ErrCompletion,
		domain.ErrIndexUnavailable,
		domain.ErrRateLimited,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// rateLimitHandler handles ErrRateLimited with a Retry-After header.
func rateLimitHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrRateLimited) {
		return false
	}
	var rl *domain.RateLimitedError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"code":    codeRateLimited,
			"message": msg,
			"scope":   rl.Scope,
			"limit":   rl.Limit,
		})
		return true
	}
	writeError(w, http.StatusTooManyRequests, codeRateLimited, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
