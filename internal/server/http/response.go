package httpserver

import (
	"time"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// apiTimeFormat is the timestamp layout used in API payloads.
const apiTimeFormat = time.RFC3339

// successEnvelope wraps every successful API payload. Timestamp is a
// pointer so endpoints without a natural event time serialize it as null
// rather than omitting the field.
type successEnvelope struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Timestamp *string `json:"timestamp"`
}

// wrap builds the standard success envelope. An empty timestamp serializes
// as null, mirroring payloads that carry no event time of their own.
func wrap(data any, timestamp string) successEnvelope {
	env := successEnvelope{Success: true, Data: data}
	if timestamp != "" {
		env.Timestamp = &timestamp
	}
	return env
}

// searchResponse is the payload of POST /api/search.
type searchResponse struct {
	Papers      []domain.Paper `json:"papers"`
	FromCache   bool           `json:"from_cache"`
	Aborted     bool           `json:"aborted,omitempty"`
	AbortReason string         `json:"abort_reason,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// topicsResponse is the payload of POST /api/generate-topics.
type topicsResponse struct {
	Topics     domain.TopicSet `json:"topics"`
	PaperCount int             `json:"paper_count"`
	Timestamp  string          `json:"timestamp"`
}

// uploadResponse is the payload of POST /api/upload-pdf.
type uploadResponse struct {
	Abstract  string `json:"abstract"`
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
}

// downloadResponse is the payload of POST /api/download-pdf/{paperID}.
// Success is repeated inside the payload because download clients read it
// there rather than from the envelope.
type downloadResponse struct {
	Success  bool   `json:"success"`
	Abstract string `json:"abstract"`
	Filepath string `json:"filepath"`
}
