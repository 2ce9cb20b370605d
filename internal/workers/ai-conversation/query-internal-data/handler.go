package queryinternaldata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"aivy-conversation/internal/aivy/intent"
	"aivy-conversation/internal/aivy/llm"
	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/aivy/prioritizer"
	"aivy-conversation/internal/aivy/retrieval"
	"aivy-conversation/internal/common/camunda"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/metrics"
	"aivy-conversation/internal/models"
)

const TaskType = "query-internal-data"

// Handler retrieves knowledge for a question and ranks it for the session's
// executive context. Unlike the chat endpoint it fails the job when
// retrieval fails, so the engine can retry.
type Handler struct {
	config      *Config
	memory      *memory.Memory
	retriever   retrieval.Retriever
	prioritizer *prioritizer.Prioritizer
	classifier  *intent.Classifier
	errors      *apperrors.ErrorHandler
	logger      logger.Logger
}

type Dependencies struct {
	Memory      *memory.Memory
	Retriever   retrieval.Retriever
	Prioritizer *prioritizer.Prioritizer
	Classifier  *intent.Classifier
	Logger      logger.Logger
}

func NewHandler(config *Config, deps Dependencies) *Handler {
	if deps.Prioritizer == nil {
		deps.Prioritizer = prioritizer.New(nil)
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier(nil)
	}
	if deps.Retriever == nil {
		deps.Retriever = retrieval.Nop{}
	}
	l := logger.ForComponent(deps.Logger, TaskType)
	return &Handler{
		config:      config,
		memory:      deps.Memory,
		retriever:   deps.Retriever,
		prioritizer: deps.Prioritizer,
		classifier:  deps.Classifier,
		errors:      apperrors.NewErrorHandler(l),
		logger:      l,
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

	sctx := models.DefaultSessionContext()
	if input.SessionID != "" && h.memory != nil {
		sctx = h.memory.ContextOrDefault(ctx, input.SessionID)
	}

	chunks, err := h.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, classifyRetrievalError(err)
	}
	retrieved := len(chunks)
	metrics.KnowledgeChunks.WithLabelValues("retrieved").Observe(float64(retrieved))

	var analysis models.IntentAnalysis
	if input.IntentAnalysis != nil {
		analysis = *input.IntentAnalysis
	} else {
		analysis = h.classifier.Classify(question, sctx)
	}

	if h.config.ExecutiveFilter {
		chunks = h.prioritizer.FilterExecutiveAppropriate(chunks)
	}
	ranked := h.prioritizer.Prioritize(chunks, prioritizer.ExecutiveContext{
		Profile: sctx.ExecutiveProfile,
		State:   sctx.ConversationState,
		Intent:  analysis,
	})
	metrics.KnowledgeChunks.WithLabelValues("prioritized").Observe(float64(len(ranked)))

	h.logger.Info("knowledge retrieved", map[string]interface{}{
		"retrieved":   retrieved,
		"prioritized": len(ranked),
		"intent":      analysis.PrimaryIntent,
	})

	return &Output{
		KnowledgeChunks: ranked,
		ChunkCount:      len(ranked),
		RetrievedCount:  retrieved,
	}, nil
}

func classifyRetrievalError(err error) error {
	switch {
	case errors.Is(err, retrieval.ErrSearchTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewSearchTimeoutError("knowledge")
	case errors.Is(err, retrieval.ErrEmptyQuery):
		return apperrors.NewInvalidRequestError(err.Error())
	case errors.Is(err, llm.ErrEmbeddingFailed), errors.Is(err, retrieval.ErrEmbeddingEmpty):
		return apperrors.NewEmbeddingError(err)
	default:
		return apperrors.NewKnowledgeRetrievalError("knowledge", err)
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
