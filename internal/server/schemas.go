package server

// ChatMessage is one turn of a client conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SymptomChatRequest is the body of POST /symptoms/chat. The API is
// stateless; the client sends the full history each time.
type SymptomChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// SuspectedCondition is one differential entry in a symptom assessment.
type SuspectedCondition struct {
	Condition  string `json:"condition"`
	Likelihood string `json:"likelihood"`
	Reasoning  string `json:"reasoning"`
}

// SymptomChatResponse is the structured assistant reply.
type SymptomChatResponse struct {
	Reply               string               `json:"reply"`
	FollowUpQuestions   []string             `json:"follow_up_questions"`
	SuspectedConditions []SuspectedCondition `json:"suspected_conditions"`
	Urgency             string               `json:"urgency"`
	ShouldContinue      bool                 `json:"should_continue"`
	TokensUsed          map[string]int       `json:"tokens_used"`
}

// respiratoryDiseases are the conditions /report accepts.
var respiratoryDiseases = map[string]bool{
	"Asthma":         true,
	"Bronchiectasis": true,
	"Bronchiolitis":  true,
	"COPD":           true,
	"Healthy":        true,
	"LRTI":           true,
	"Pneumonia":      true,
	"URTI":           true,
}

// ReportRequest is the body of POST /report. Age, height, and weight are
// optional; they are bucketized before reaching the provider.
type ReportRequest struct {
	Disease string   `json:"disease"`
	Age     *int     `json:"age,omitempty"`
	Height  *float64 `json:"height,omitempty"` // cm
	Weight  *float64 `json:"weight,omitempty"` // kg
}

// PatientInfo echoes the caller's exact inputs back. Only bracketed values
// ever reach the provider.
type PatientInfo struct {
	Age    *int     `json:"age"`
	Height *float64 `json:"height"`
	Weight *float64 `json:"weight"`
}

// ReportResponse is the body returned by POST /report.
type ReportResponse struct {
	Disease     string         `json:"disease"`
	PatientInfo PatientInfo    `json:"patient_info"`
	Report      string         `json:"report"`
	Model       string         `json:"model"`
	TokensUsed  map[string]int `json:"tokens_used"`
	Cached      bool           `json:"cached"`
}

// ScanAnalysisResponse is the body returned by POST /scan/analyze.
type ScanAnalysisResponse struct {
	ScanType   string                 `json:"scan_type"`
	Findings   map[string]interface{} `json:"findings"`
	Report     string                 `json:"report"`
	Model      string                 `json:"model"`
	TokensUsed map[string]int         `json:"tokens_used"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}
