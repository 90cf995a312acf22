package detector

import (
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"mediacheck/internal/core"
)

const (
	statusAnalyzing     = "ANALYZING"
	statusNotApplicable = "NOT_APPLICABLE"
)

// parseResult maps a media result payload to a Verdict. done is false while
// the service is still analyzing. Absent fields stay absent.
func parseResult(body []byte) (verdict *core.Verdict, done bool, err error) {
	if !gjson.ValidBytes(body) {
		return nil, false, core.NewUpstreamError(http.StatusBadGateway, "invalid JSON in media result", nil)
	}

	doc := gjson.ParseBytes(body)
	status := strings.TrimSpace(doc.Get("resultsSummary.status").String())
	if status == "" || strings.EqualFold(status, statusAnalyzing) {
		return nil, false, nil
	}

	verdict = &core.Verdict{Status: normalizeStatus(status)}

	if finalScore := doc.Get("resultsSummary.metadata.finalScore"); finalScore.Type == gjson.Number {
		score := finalScore.Float() / 100
		verdict.Score = &score
	}

	doc.Get("models").ForEach(func(_, m gjson.Result) bool {
		modelStatus := m.Get("status").String()
		if strings.EqualFold(modelStatus, statusNotApplicable) {
			return true
		}

		model := core.ModelResult{
			Name:   m.Get("name").String(),
			Status: normalizeStatus(modelStatus),
		}
		if p := m.Get("predictionNumber"); p.Type == gjson.Number {
			score := p.Float()
			model.Score = &score
		} else if fs := m.Get("finalScore"); fs.Type == gjson.Number {
			score := fs.Float() / 100
			model.Score = &score
		}
		verdict.Models = append(verdict.Models, model)
		return true
	})

	return verdict, true, nil
}

func normalizeStatus(status string) string {
	if strings.EqualFold(status, "FAKE") {
		return "MANIPULATED"
	}
	return status
}
