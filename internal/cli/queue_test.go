package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sungwon/newsletter/internal/queue"
)

func TestWriteStats_Text(t *testing.T) {
	issue := uuid.MustParse("7b0c4c8e-3f7a-4f0e-9a57-8a4f3c2d1e0b")
	stats := queue.Stats{Total: 3, ByIssue: []queue.IssueDepth{{IssueID: issue, Pending: 3}}}

	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, "text", stats))

	out := buf.String()
	assert.Contains(t, out, "NEWSLETTER ISSUE")
	assert.Contains(t, out, issue.String())
	assert.Contains(t, out, "TOTAL")
}

func TestWriteStats_EmptyText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, "text", queue.Stats{}))
	assert.Equal(t, "Delivery queue is empty.\n", buf.String())
}

func TestWriteStats_JSON(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	stats := queue.Stats{Total: 5, ByIssue: []queue.IssueDepth{{IssueID: a, Pending: 2}, {IssueID: b, Pending: 3}}}

	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, "json", stats))

	var got StatsResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, int64(5), got.Total)
	require.Len(t, got.ByIssue, 2)
	assert.Equal(t, a.String(), got.ByIssue[0].IssueID)
	assert.Equal(t, int64(3), got.ByIssue[1].Pending)
}

func TestWriteStats_EmptyJSONHasArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, "json", queue.Stats{}))
	assert.JSONEq(t, `{"total":0,"by_issue":[]}`, buf.String())
}
