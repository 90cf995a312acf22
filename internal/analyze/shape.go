package analyze

import "mediacheck/internal/core"

const (
	defaultStatus    = "unknown"
	defaultModelName = "Unknown Model"
)

// Shape builds the public response from a verdict, filling every missing
// field with its default. A nil verdict or receipt yields the defaults.
func Shape(verdict *core.Verdict, receipt *core.UploadReceipt, fileType core.FileType) *core.AnalysisResponse {
	resp := &core.AnalysisResponse{
		Status:   defaultStatus,
		Models:   []core.ModelSummary{},
		FileType: fileType,
	}
	if receipt != nil {
		resp.RequestID = receipt.RequestID
		resp.MediaID = receipt.MediaID
	}
	if verdict == nil {
		return resp
	}

	if verdict.Status != "" {
		resp.Status = verdict.Status
	}
	if verdict.Score != nil {
		resp.Score = *verdict.Score
	}
	for _, m := range verdict.Models {
		summary := core.ModelSummary{
			Name:   m.Name,
			Status: m.Status,
		}
		if summary.Name == "" {
			summary.Name = defaultModelName
		}
		if summary.Status == "" {
			summary.Status = defaultStatus
		}
		if m.Score != nil {
			summary.Score = *m.Score
		}
		resp.Models = append(resp.Models, summary)
	}
	return resp
}
