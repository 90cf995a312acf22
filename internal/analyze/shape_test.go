package analyze

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacheck/internal/core"
)

func TestShape_Defaults(t *testing.T) {
	receipt := &core.UploadReceipt{RequestID: "r2", MediaID: "m2"}
	verdict := &core.Verdict{
		Models: []core.ModelResult{{}},
	}

	resp := Shape(verdict, receipt, core.FileTypeAudio)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Equal(t,
		`{"status":"unknown","score":0,"models":[{"name":"Unknown Model","status":"unknown","score":0}],"media_id":"m2","request_id":"r2","file_type":"audio"}`,
		string(body))
}

func TestShape_EmptyModelsSerializeAsArray(t *testing.T) {
	resp := Shape(&core.Verdict{Status: "MANIPULATED", Score: score(0.93)}, &core.UploadReceipt{}, core.FileTypeVideo)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"models":[]`)
	assert.Equal(t, "MANIPULATED", resp.Status)
	assert.Equal(t, 0.93, resp.Score)
}

func TestShape_NilVerdict(t *testing.T) {
	resp := Shape(nil, nil, core.FileTypeImage)
	assert.Equal(t, "unknown", resp.Status)
	assert.Equal(t, 0.0, resp.Score)
	assert.NotNil(t, resp.Models)
	assert.Empty(t, resp.Models)
	assert.Equal(t, core.FileTypeImage, resp.FileType)
}

func TestShape_PreservesModelOrder(t *testing.T) {
	verdict := &core.Verdict{
		Status: "authentic",
		Models: []core.ModelResult{
			{Name: "b", Status: "authentic", Score: score(0.2)},
			{Name: "a", Score: score(0.4)},
			{Status: "suspicious"},
		},
	}

	resp := Shape(verdict, &core.UploadReceipt{RequestID: "r", MediaID: "m"}, core.FileTypeImage)

	require.Len(t, resp.Models, 3)
	assert.Equal(t, core.ModelSummary{Name: "b", Status: "authentic", Score: 0.2}, resp.Models[0])
	assert.Equal(t, core.ModelSummary{Name: "a", Status: "unknown", Score: 0.4}, resp.Models[1])
	assert.Equal(t, core.ModelSummary{Name: "Unknown Model", Status: "suspicious", Score: 0}, resp.Models[2])
}
