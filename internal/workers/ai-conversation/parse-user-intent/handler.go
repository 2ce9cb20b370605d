package parseuserintent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"aivy-conversation/internal/aivy/intent"
	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/common/camunda"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/metrics"
	"aivy-conversation/internal/models"
)

const TaskType = "parse-user-intent"

var ErrEmptyQuestion = errors.New("QUESTION_REQUIRED")

// Handler classifies the question of a BPMN-orchestrated conversation turn.
// With a sessionId the session's profile and history inform the analysis.
type Handler struct {
	config     *Config
	memory     *memory.Memory
	classifier *intent.Classifier
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, mem *memory.Memory, classifier *intent.Classifier, log logger.Logger) *Handler {
	if classifier == nil {
		classifier = intent.NewClassifier(nil)
	}
	l := logger.ForComponent(log, TaskType)
	return &Handler{
		config:     config,
		memory:     mem,
		classifier: classifier,
		errors:     apperrors.NewErrorHandler(l),
		logger:     l,
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
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	camunda.CompleteJob(client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrEmptyQuestion)
	}

	sctx := models.DefaultSessionContext()
	if input.SessionID != "" && h.memory != nil {
		sctx = h.memory.ContextOrDefault(ctx, input.SessionID)
	}

	analysis := h.classifier.Classify(question, sctx)
	metrics.IntentsClassified.WithLabelValues(string(analysis.PrimaryIntent)).Inc()

	h.logger.Info("intent parsed", map[string]interface{}{
		"intent":     analysis.PrimaryIntent,
		"confidence": analysis.Confidence,
		"urgency":    analysis.ExecutiveContext.Urgency,
		"topics":     analysis.KeyTopics,
	})

	return &Output{IntentAnalysis: analysis, SessionID: input.SessionID}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
