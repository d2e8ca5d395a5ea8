// Package server exposes the gateway HTTP API. Every patient-supplied value
// passes through the anonymizer before it can reach the provider.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acoustixpulse/gateway/internal/anonymize"
	"github.com/acoustixpulse/gateway/internal/cache"
	"github.com/acoustixpulse/gateway/internal/config"
	"github.com/acoustixpulse/gateway/internal/metrics"
	"github.com/acoustixpulse/gateway/internal/provider"
)

// Provider is the outbound AI call. Satisfied by *provider.Client; tests
// substitute a fake to capture what actually leaves the gateway.
type Provider interface {
	Chat(ctx context.Context, system string, messages []anonymize.Message, temperature float64) (string, provider.Usage, error)
}

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

var allowedMIMETypes = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/webp": true,
	"image/gif": true, "application/octet-stream": true,
}

// Server holds the gateway's request handlers and their dependencies.
type Server struct {
	provider        Provider
	anon            *anonymize.Anonymizer
	cache           *cache.Cache
	metrics         *metrics.Collector
	model           string
	adminToken      string
	imageFailClosed bool
	maxUploadBytes  int64
	budgetStats     func() provider.BudgetStats
}

// New creates a server from config with a fresh cache and metrics collector.
func New(cfg *config.Config, p Provider, anon *anonymize.Anonymizer) *Server {
	return &Server{
		provider:        p,
		anon:            anon,
		cache:           cache.New(cfg.CacheMaxSize),
		metrics:         metrics.NewCollector(),
		model:           cfg.Provider.Model,
		adminToken:      cfg.AdminToken,
		imageFailClosed: cfg.ImageFailClosed,
		maxUploadBytes:  cfg.MaxUploadBytes,
	}
}

// SetBudgetStats attaches budget counters to the /admin/metrics snapshot.
func (s *Server) SetBudgetStats(fn func() provider.BudgetStats) {
	s.budgetStats = fn
}

// RegisterRoutes adds the gateway routes to a ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/symptoms/chat", s.instrument("/symptoms/chat", s.handleSymptomChat))
	mux.Handle("/report", s.instrument("/report", s.handleReport))
	mux.Handle("/scan/analyze", s.instrument("/scan/analyze", s.handleScanAnalyze))
	mux.HandleFunc("/admin/metrics", s.handleAdminMetrics)
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Model: s.model})
}

// handleSymptomChat serves POST /symptoms/chat. The full history is redacted
// message by message before the provider sees it; free-text chat is the
// highest-risk PHI surface.
func (s *Server) handleSymptomChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SymptomChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "messages must not be empty"})
		return
	}

	raw := make([]anonymize.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		raw = append(raw, anonymize.Message{
			Role:    anonymize.Role(m.Role),
			Content: anonymize.Text(m.Content),
		})
	}

	prefix := "symptom_chat#" + requestID()
	clean, err := s.anon.RedactMessages(raw, prefix)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	reply, usage, err := s.provider.Chat(r.Context(), symptomSystemPrompt, clean, 0.4)
	if err != nil {
		log.Printf("[server] symptom chat failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "symptom chat failed"})
		return
	}
	s.metrics.RecordTokens(usage.PromptTokens, usage.CompletionTokens)

	resp := parseSymptomReply(reply)
	resp.TokensUsed = usageMap(usage)
	writeJSON(w, http.StatusOK, resp)
}

// parseSymptomReply parses the model's structured JSON, tolerating markdown
// code fences. Unparseable output falls back to a raw-text reply.
func parseSymptomReply(raw string) SymptomChatResponse {
	resp := SymptomChatResponse{
		Reply:               raw,
		FollowUpQuestions:   []string{},
		SuspectedConditions: []SuspectedCondition{},
		Urgency:             "information_gathering",
		ShouldContinue:      true,
	}

	cleaned := stripCodeFences(raw)
	var parsed SymptomChatResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return resp
	}

	if parsed.Reply != "" {
		resp.Reply = parsed.Reply
	}
	if parsed.FollowUpQuestions != nil {
		resp.FollowUpQuestions = parsed.FollowUpQuestions
	}
	if parsed.SuspectedConditions != nil {
		resp.SuspectedConditions = parsed.SuspectedConditions
	}
	if parsed.Urgency != "" {
		resp.Urgency = parsed.Urgency
	}
	resp.ShouldContinue = parsed.ShouldContinue
	return resp
}

// handleReport serves POST /report. Exact age, height, and weight never
// reach the provider; the prompt carries brackets and a BMI category only.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if !respiratoryDiseases[req.Disease] {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unknown disease %q, accepted: %s", req.Disease, strings.Join(diseaseNames(), ", ")),
		})
		return
	}

	patientCtx := patientContext(req)
	resp := ReportResponse{
		Disease:     req.Disease,
		PatientInfo: PatientInfo{Age: req.Age, Height: req.Height, Weight: req.Weight},
		Model:       s.model,
		TokensUsed:  map[string]int{},
	}

	// Identical bracketed context means an identical prompt.
	key := cache.HashBytes([]byte(patientCtx))
	if body, ok := s.cache.Get(key); ok {
		s.metrics.RecordCacheHit()
		resp.Report = string(body)
		resp.Cached = true
		writeJSON(w, http.StatusOK, resp)
		return
	}
	s.metrics.RecordCacheMiss()

	userPrompt := "Generate a comprehensive patient report for the following:\n\n" +
		patientCtx + "\n\nPlease provide a thorough, professional medical report."

	report, usage, err := s.provider.Chat(r.Context(), reportSystemPrompt, []anonymize.Message{
		{Role: anonymize.RoleUser, Content: anonymize.Text(userPrompt)},
	}, 0.6)
	if err != nil {
		log.Printf("[server] report generation failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "report generation failed"})
		return
	}
	s.metrics.RecordTokens(usage.PromptTokens, usage.CompletionTokens)
	s.cache.Set(key, []byte(report))

	resp.Report = report
	resp.TokensUsed = usageMap(usage)
	writeJSON(w, http.StatusOK, resp)
}

// patientContext builds the de-identified prompt context. Exact values are
// replaced with brackets; BMI travels as a category because the exact number
// is derivable back to height and weight.
func patientContext(req ReportRequest) string {
	parts := []string{fmt.Sprintf("Diagnosed condition: **%s**", req.Disease)}
	if req.Age != nil {
		parts = append(parts, "Age group: "+anonymize.BucketAge(req.Age))
	}
	if req.Height != nil {
		parts = append(parts, "Height range: "+anonymize.BracketHeight(req.Height))
	}
	if req.Weight != nil {
		parts = append(parts, "Weight range: "+anonymize.BracketWeight(req.Weight))
	}
	if req.Height != nil && req.Weight != nil && *req.Height > 0 {
		bmi := *req.Weight / ((*req.Height / 100) * (*req.Height / 100))
		parts = append(parts, "BMI category: "+bmiCategory(bmi))
	}
	return strings.Join(parts, "\n")
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight (BMI < 18.5)"
	case bmi < 25:
		return "Normal weight (BMI 18.5–24.9)"
	case bmi < 30:
		return "Overweight (BMI 25–29.9)"
	default:
		return "Obese (BMI ≥ 30)"
	}
}

func diseaseNames() []string {
	names := make([]string, 0, len(respiratoryDiseases))
	for name := range respiratoryDiseases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handleScanAnalyze serves POST /scan/analyze. Imaging devices embed patient
// name, DOB, MRN, and facility identifiers in metadata headers; the upload is
// sanitized before its bytes leave the gateway.
func (s *Server) handleScanAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form: " + err.Error()})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
		return
	}
	defer file.Close()

	scanType := r.FormValue("scan_type")
	if scanType == "" {
		scanType = "chest_xray"
	}
	systemPrompt, ok := scanSystemPrompts[scanType]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unknown scan_type %q, accepted: chest_xray, ecg, ct_scan, mri", scanType),
		})
		return
	}

	filename := strings.ToLower(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if !validImageUpload(filename, contentType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported file type %q (%s)", header.Filename, contentType),
		})
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "read upload failed"})
		return
	}

	fieldID := fmt.Sprintf("scan_%s#%s", scanType, requestID())
	clean, err := s.anon.SanitizeImage(raw, fieldID)
	if err != nil {
		if s.imageFailClosed {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "image sanitization failed and fail-closed mode is enabled",
			})
			return
		}
		log.Printf("[server] %s: sanitization failed, forwarding original bytes: %v", fieldID, err)
	}

	log.Printf("[server] analyzing %s image (%d KB)", scanType, len(clean)/1024)

	messages := []anonymize.Message{
		{
			Role: anonymize.RoleUser,
			Content: anonymize.Parts{
				anonymize.ImagePart{
					Data: base64.StdEncoding.EncodeToString(clean),
					MIME: detectMIME(filename, contentType),
				},
				anonymize.TextPart{
					Text: fmt.Sprintf(
						"Please analyze this %s image. Provide the JSON findings block first, then the full Markdown report.",
						strings.ReplaceAll(scanType, "_", " ")),
				},
			},
		},
	}

	result, usage, err := s.provider.Chat(r.Context(), systemPrompt, messages, 0.3)
	if err != nil {
		log.Printf("[server] scan analysis failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "scan analysis failed"})
		return
	}
	s.metrics.RecordTokens(usage.PromptTokens, usage.CompletionTokens)

	writeJSON(w, http.StatusOK, ScanAnalysisResponse{
		ScanType:   scanType,
		Findings:   extractJSON(result),
		Report:     result,
		Model:      s.model,
		TokensUsed: usageMap(usage),
	})
}

// handleAdminMetrics serves GET /admin/metrics, Bearer-protected when an
// admin token is configured.
func (s *Server) handleAdminMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.adminToken != "" {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.adminToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "invalid or missing Bearer token",
			})
			return
		}
	}

	resp := struct {
		Metrics metrics.Snapshot      `json:"metrics"`
		Budget  *provider.BudgetStats `json:"budget,omitempty"`
	}{Metrics: s.metrics.Snapshot()}

	if s.budgetStats != nil {
		stats := s.budgetStats()
		resp.Budget = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// instrument wraps a handler with per-route request metrics.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r)
		s.metrics.RecordRequest(route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func validImageUpload(filename, contentType string) bool {
	for ext := range allowedExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return allowedMIMETypes[contentType]
}

func detectMIME(filename, contentType string) string {
	switch {
	case strings.HasSuffix(filename, ".png"):
		return "image/png"
	case strings.HasSuffix(filename, ".webp"):
		return "image/webp"
	case strings.HasSuffix(filename, ".gif"):
		return "image/gif"
	case strings.HasPrefix(contentType, "image/"):
		return contentType
	default:
		return "image/jpeg"
	}
}

// stripCodeFences unwraps a markdown-fenced block, if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	end := strings.LastIndex(s, "```")
	if end <= start {
		return s
	}
	lines := strings.Split(s[start:end+3], "\n")
	if len(lines) < 3 {
		return s
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// extractJSON pulls the first balanced JSON object out of mixed text output.
func extractJSON(text string) map[string]interface{} {
	start := strings.Index(text, "{")
	if start == -1 {
		return map[string]interface{}{}
	}

	depth := 0
	end := start
scan:
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
				break scan
			}
		}
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end]), &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func requestID() string {
	return uuid.NewString()[:8]
}

func usageMap(u provider.Usage) map[string]int {
	return map[string]int{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.CompletionTokens,
		"total_tokens":      u.TotalTokens,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
