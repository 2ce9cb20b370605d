package recordconversationturn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/common/camunda"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
)

const TaskType = "record-conversation-turn"

// Handler appends a finished turn and advances the session state. A failure
// here fails the job; the chat endpoint records best-effort instead.
type Handler struct {
	config   *Config
	memory   *memory.Memory
	recorder *memory.Recorder
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, mem *memory.Memory, recorder *memory.Recorder, log logger.Logger) *Handler {
	l := logger.ForComponent(log, TaskType)
	return &Handler{
		config:   config,
		memory:   mem,
		recorder: recorder,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, apperrors.NewInvalidRequestError("sessionId is required")
	}
	if strings.TrimSpace(input.Question) == "" || strings.TrimSpace(input.Response) == "" {
		return nil, apperrors.NewInvalidRequestError("question and response are required")
	}

	if err := h.recorder.Record(ctx, input.SessionID, input.Question, input.Response,
		input.IntentAnalysis, input.KnowledgeChunks); err != nil {
		return nil, err
	}

	out := &Output{Recorded: true}
	if h.memory != nil {
		sctx := h.memory.ContextOrDefault(ctx, input.SessionID)
		out.EngagementLevel = sctx.ConversationState.EngagementLevel
		out.ContactCaptured = h.memory.HasContactInfo(ctx, input.SessionID)
	}

	h.logger.Info("conversation turn recorded", map[string]interface{}{
		"sessionId":       input.SessionID,
		"engagementLevel": out.EngagementLevel,
	})
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
