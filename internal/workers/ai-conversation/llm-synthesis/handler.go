package llmsynthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"aivy-conversation/internal/aivy/llm"
	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/common/camunda"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

const TaskType = "llm-synthesis"

type Handler struct {
	config    *Config
	memory    *memory.Memory
	generator llm.Generator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, mem *memory.Memory, generator llm.Generator, log logger.Logger) *Handler {
	l := logger.ForComponent(log, TaskType)
	return &Handler{
		config:    config,
		memory:    mem,
		generator: generator,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
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
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, apperrors.NewInvalidRequestError("question is empty")
	}
	if h.generator == nil {
		return nil, apperrors.NewLLMSynthesisFailedError(errors.New("no response generator configured"))
	}

	sctx := models.DefaultSessionContext()
	if input.SessionID != "" && h.memory != nil {
		sctx = h.memory.ContextOrDefault(ctx, input.SessionID)
	}

	chunks := input.KnowledgeChunks
	if chunks == nil {
		chunks = []models.KnowledgeChunk{}
	}

	response, err := h.generator.Generate(ctx, llm.ContextBundle{
		Query:   question,
		Chunks:  chunks,
		Profile: sctx.ExecutiveProfile,
		State:   sctx.ConversationState,
		Intent:  input.IntentAnalysis,
		History: sctx.RecentHistory,
	})
	if err != nil {
		return nil, mapGenerationError(err)
	}

	h.logger.Info("response synthesized", map[string]interface{}{
		"sessionId": input.SessionID,
		"sources":   len(chunks),
		"chars":     len(response),
	})

	return &Output{Response: response, SourceCount: len(chunks)}, nil
}

func mapGenerationError(err error) error {
	var stdErr *apperrors.StandardError
	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case errors.Is(err, llm.ErrLLMTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewLLMTimeoutError()
	default:
		return apperrors.NewLLMSynthesisFailedError(err)
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
