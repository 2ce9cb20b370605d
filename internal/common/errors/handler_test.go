package errors

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aivy-conversation/internal/common/camunda/camundatest"
)

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Error(msg string, _ map[string]interface{}) {
	l.messages = append(l.messages, msg)
}

func expiredContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	t.Cleanup(cancel)
	<-ctx.Done()
	return ctx
}

func TestHandleJobError_FailsRetryableJobAfterDeadline(t *testing.T) {
	client := camundatest.NewJobClient()
	h := NewErrorHandler(&recordingLogger{})

	job := camundatest.Job(42, "aivy-llm-synthesis", 3, "{}")
	h.HandleJobError(expiredContext(t), client, job, NewLLMTimeoutError())

	sent := client.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "fail", sent[0].Kind)
	assert.Equal(t, int64(42), sent[0].JobKey)
	assert.Equal(t, int32(1), sent[0].Retries)
	assert.NoError(t, sent[0].CtxErr)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(sent[0].Variables), &vars))
	assert.Equal(t, "LLM_TIMEOUT", vars["errorCode"])
}

func TestHandleJobError_ThrowsWhenNotRetryable(t *testing.T) {
	client := camundatest.NewJobClient()
	h := NewErrorHandler(&recordingLogger{})

	job := camundatest.Job(7, "aivy-crm-lead-sync", 3, "{}")
	h.HandleJobError(expiredContext(t), client, job, NewLeadValidationError("phone missing"))

	sent := client.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "throw", sent[0].Kind)
	assert.Equal(t, "LEAD_VALIDATION_FAILED", sent[0].ErrorCode)
	assert.NoError(t, sent[0].CtxErr)
}

func TestHandleJobError_LastRetryThrows(t *testing.T) {
	client := camundatest.NewJobClient()
	h := NewErrorHandler(&recordingLogger{})

	h.HandleJobError(context.Background(), client, camundatest.Job(8, "aivy-llm-synthesis", 1, "{}"), NewLLMTimeoutError())

	sent := client.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "throw", sent[0].Kind)
	assert.Equal(t, "LLM_TIMEOUT", sent[0].ErrorCode)
}
