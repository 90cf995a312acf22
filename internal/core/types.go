package core

// FileType is the validation bucket an upload falls into.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeAudio FileType = "audio"
)

// FileTypes lists the accepted categories in lookup order.
var FileTypes = []FileType{FileTypeImage, FileTypeVideo, FileTypeAudio}

// UploadReceipt is returned by the detection service when a file is accepted.
type UploadReceipt struct {
	RequestID string `json:"request_id"`
	MediaID   string `json:"media_id"`
}

// Verdict is the concluded analysis for a submitted job.
// Any field may be absent in the remote payload.
type Verdict struct {
	Status string        `json:"status,omitempty"`
	Score  *float64      `json:"score,omitempty"`
	Models []ModelResult `json:"models,omitempty"`
}

// ModelResult is a single detector model's sub-result.
type ModelResult struct {
	Name   string   `json:"name,omitempty"`
	Status string   `json:"status,omitempty"`
	Score  *float64 `json:"score,omitempty"`
}

// AnalysisResponse is the outbound JSON body of POST /analyze.
// Field order is part of the wire contract.
type AnalysisResponse struct {
	Status    string         `json:"status"`
	Score     float64        `json:"score"`
	Models    []ModelSummary `json:"models"`
	MediaID   string         `json:"media_id"`
	RequestID string         `json:"request_id"`
	FileType  FileType       `json:"file_type"`
}

// ModelSummary is a per-model entry of AnalysisResponse.
type ModelSummary struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}
