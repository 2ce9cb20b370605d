// Package chat runs one executive conversation turn end to end: session
// resolution, knowledge retrieval, intent analysis, prioritization,
// response generation and turn recording. It also captures lead contacts.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"aivy-conversation/internal/aivy/intent"
	"aivy-conversation/internal/aivy/llm"
	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/aivy/prioritizer"
	"aivy-conversation/internal/aivy/retrieval"
	"aivy-conversation/internal/common/config"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/metrics"
	"aivy-conversation/internal/common/observability"
	"aivy-conversation/internal/models"
)

const (
	DefaultRecordTimeout = 5 * time.Second
	DefaultHistoryLimit  = 20
	MaxHistoryLimit      = 100

	leadSuccessMessage = "Lead contact created successfully"
)

// ProcessStarter starts a BPMN process instance. camunda.Client satisfies it.
type ProcessStarter interface {
	StartProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (int64, error)
}

type Options struct {
	ExecutiveFilter bool
	RecordTimeout   time.Duration
	LeadProcessID   string
}

func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{RecordTimeout: DefaultRecordTimeout}
	if cfg == nil {
		return opts
	}
	opts.ExecutiveFilter = cfg.Conversation.ExecutiveFilter
	if cfg.Conversation.RecordTimeout > 0 {
		opts.RecordTimeout = config.GetDuration(cfg.Conversation.RecordTimeout)
	}
	opts.LeadProcessID = cfg.Camunda.LeadProcessID
	return opts
}

// Dependencies wires the service. Analytics, Processes and Observability
// are optional.
type Dependencies struct {
	Memory        *memory.Memory
	Recorder      *memory.Recorder
	Analytics     memory.Analytics
	Retriever     retrieval.Retriever
	Classifier    *intent.Classifier
	Prioritizer   *prioritizer.Prioritizer
	Generator     llm.Generator
	Processes     ProcessStarter
	Observability *observability.Observability
	Logger        logger.Logger
}

type Service struct {
	memory      *memory.Memory
	recorder    *memory.Recorder
	analytics   memory.Analytics
	retriever   retrieval.Retriever
	classifier  *intent.Classifier
	prioritizer *prioritizer.Prioritizer
	generator   llm.Generator
	processes   ProcessStarter
	obs         *observability.Observability
	opts        Options
	logger      logger.Logger

	pending sync.WaitGroup
}

func NewService(deps Dependencies, opts Options) *Service {
	if deps.Retriever == nil {
		deps.Retriever = retrieval.Nop{}
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier(nil)
	}
	if deps.Prioritizer == nil {
		deps.Prioritizer = prioritizer.New(nil)
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = DefaultRecordTimeout
	}
	log := logger.ForComponent(deps.Logger, "chat-service")
	if deps.Recorder == nil && deps.Memory != nil {
		deps.Recorder = memory.NewRecorder(deps.Memory.Store(), nil, log)
	}
	return &Service{
		memory:      deps.Memory,
		recorder:    deps.Recorder,
		analytics:   deps.Analytics,
		retriever:   deps.Retriever,
		classifier:  deps.Classifier,
		prioritizer: deps.Prioritizer,
		generator:   deps.Generator,
		processes:   deps.Processes,
		obs:         deps.Observability,
		opts:        opts,
		logger:      log,
	}
}

// ResolveIdentifier returns the session identifier to use for a request.
// Missing and "default" identifiers are replaced with a generated one.
func ResolveIdentifier(conversationID string) string {
	id := strings.TrimSpace(conversationID)
	if id == "" || id == "default" {
		return memory.GenerateSessionIdentifier()
	}
	return id
}

// HandleMessage answers one chat message. Session storage failures degrade
// to a stateless reply; retrieval failures degrade to a reply without
// knowledge context. Only invalid input and generation failures are
// returned as errors.
func (s *Service) HandleMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "chat.handle_message")
	defer span.End()

	problems, err := validateChatRequest(req)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}
	if len(problems) > 0 {
		metrics.ChatMessages.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewInvalidRequestError(strings.Join(problems, "; "))
	}
	message := strings.TrimSpace(req.Message)

	identifier := ResolveIdentifier(req.ConversationID)
	sessionID, err := s.memory.GetOrCreateSession(ctx, identifier, req.UserID)
	stateless := err != nil
	if stateless {
		s.logger.Warn("session unavailable, answering statelessly", map[string]interface{}{
			"identifier": identifier,
			"error":      err.Error(),
		})
	}
	span.SetAttributes(
		attribute.String("aivy.identifier", identifier),
		attribute.Bool("aivy.stateless", stateless),
	)

	sctx := models.DefaultSessionContext()
	var chunks []models.KnowledgeChunk

	// Context load and retrieval are independent; neither fails the turn.
	var g errgroup.Group
	if !stateless {
		g.Go(func() error {
			sctx = s.memory.ContextOrDefault(ctx, sessionID)
			return nil
		})
	}
	g.Go(func() error {
		chunks = s.retrieve(ctx, message)
		return nil
	})
	_ = g.Wait()

	analysis := s.classifier.Classify(message, sctx)
	metrics.IntentsClassified.WithLabelValues(string(analysis.PrimaryIntent)).Inc()

	if s.opts.ExecutiveFilter {
		chunks = s.prioritizer.FilterExecutiveAppropriate(chunks)
		metrics.KnowledgeChunks.WithLabelValues("filtered").Observe(float64(len(chunks)))
	}
	ranked := s.prioritizer.Prioritize(chunks, prioritizer.ExecutiveContext{
		Profile: sctx.ExecutiveProfile,
		State:   sctx.ConversationState,
		Intent:  analysis,
	})
	metrics.KnowledgeChunks.WithLabelValues("prioritized").Observe(float64(len(ranked)))

	response, err := s.generate(ctx, llm.ContextBundle{
		Query:   message,
		Chunks:  ranked,
		Profile: sctx.ExecutiveProfile,
		State:   sctx.ConversationState,
		Intent:  analysis,
		History: sctx.RecentHistory,
	})
	if err != nil {
		metrics.ChatMessages.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := &ChatResponse{
		Response:       response,
		ConversationID: identifier,
		Intent:         string(analysis.PrimaryIntent),
		Sources:        len(ranked),
		Timestamp:      time.Now().UTC(),
	}

	if !stateless {
		out.SessionID = sessionID
		s.record(ctx, sessionID, message, response, analysis, ranked)
		out.ContactCaptured = s.memory.HasContactInfo(ctx, sessionID)
	}
	s.track(ctx, identifier, req.UserID, message, response)

	outcome := "answered"
	if stateless {
		outcome = "stateless"
	}
	metrics.ChatMessages.WithLabelValues(outcome).Inc()
	metrics.ChatDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	s.obs.RecordTurn(ctx, string(analysis.PrimaryIntent))

	s.logger.Info("chat message handled", map[string]interface{}{
		"identifier":      identifier,
		"intent":          analysis.PrimaryIntent,
		"confidence":      analysis.Confidence,
		"sources":         len(ranked),
		"contactCaptured": out.ContactCaptured,
		"durationMs":      time.Since(start).Milliseconds(),
	})
	return out, nil
}

func (s *Service) retrieve(ctx context.Context, message string) []models.KnowledgeChunk {
	ctx, span := s.obs.StartSpan(ctx, "chat.retrieve")
	defer span.End()
	start := time.Now()
	defer func() {
		metrics.ChatDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	chunks, err := s.retriever.Retrieve(ctx, message)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("knowledge retrieval failed, continuing without context", map[string]interface{}{
			"error":   err.Error(),
			"timeout": errors.Is(err, retrieval.ErrSearchTimeout),
		})
		return []models.KnowledgeChunk{}
	}
	metrics.KnowledgeChunks.WithLabelValues("retrieved").Observe(float64(len(chunks)))
	span.SetAttributes(attribute.Int("aivy.chunks", len(chunks)))
	return chunks
}

func (s *Service) generate(ctx context.Context, bundle llm.ContextBundle) (string, error) {
	if s.generator == nil {
		return "", apperrors.NewLLMSynthesisFailedError(errors.New("no response generator configured"))
	}
	ctx, span := s.obs.StartSpan(ctx, "chat.generate")
	defer span.End()
	start := time.Now()

	response, err := s.generator.Generate(ctx, bundle)
	metrics.ChatDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", mapGenerationError(err)
	}
	return response, nil
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

// record persists the turn in the background so the reply is not held up by
// the store. It is detached from request cancellation so a client
// disconnect does not lose the turn.
func (s *Service) record(ctx context.Context, sessionID, message, response string, analysis models.IntentAnalysis, sources []models.KnowledgeChunk) {
	if s.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RecordTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		s.recorder.RecordBestEffort(rctx, sessionID, message, response, analysis, sources)
	}()
}

// Wait blocks until background turn recordings have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) track(ctx context.Context, identifier, rawUserID, message, response string) {
	if s.analytics == nil {
		return
	}
	event := memory.ChatMessageEvent(identifier, memory.CoerceUserID(rawUserID), message, response, time.Now())
	if err := s.analytics.Track(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to log analytics", map[string]interface{}{
			"identifier": identifier,
			"error":      err.Error(),
		})
	}
}

// SubmitLeadContact validates and stores a visitor's contact details, then
// starts the lead follow-up process when one is configured. A process start
// failure does not fail the submission.
func (s *Service) SubmitLeadContact(ctx context.Context, req LeadRequest) (*LeadResponse, error) {
	ctx, span := s.obs.StartSpan(ctx, "chat.submit_lead")
	defer span.End()

	problems, err := validateLeadRequest(req)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}
	if len(problems) > 0 {
		metrics.LeadsCaptured.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewLeadValidationError(strings.Join(problems, "; "))
	}

	identifier := strings.TrimSpace(req.ConversationID)
	if identifier == "" {
		identifier = memory.GenerateSessionIdentifier()
	}
	sessionID, err := s.memory.GetOrCreateSession(ctx, identifier, req.UserID)
	if err != nil {
		metrics.LeadsCaptured.WithLabelValues("failed").Inc()
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) {
			return nil, stdErr
		}
		return nil, apperrors.NewSessionStoreError("get_or_create_session", err)
	}

	contact := req.ContactInfo.toLeadContact()
	contactID, ok := s.memory.CreateLeadContact(ctx, sessionID, contact)
	if !ok {
		metrics.LeadsCaptured.WithLabelValues("failed").Inc()
		return nil, apperrors.NewLeadCaptureError(sessionID)
	}
	metrics.LeadsCaptured.WithLabelValues("captured").Inc()

	out := &LeadResponse{
		Success:        true,
		ContactID:      contactID,
		SessionID:      sessionID,
		ConversationID: identifier,
		Message:        leadSuccessMessage,
	}
	out.ProcessInstanceKey = s.startFollowUp(ctx, contactID, sessionID, contact)
	return out, nil
}

func (s *Service) startFollowUp(ctx context.Context, contactID, sessionID string, contact models.LeadContact) int64 {
	if s.processes == nil || s.opts.LeadProcessID == "" {
		return 0
	}
	key, err := s.processes.StartProcess(ctx, s.opts.LeadProcessID, map[string]interface{}{
		"leadContactId": contactID,
		"sessionId":     sessionID,
		"name":          contact.Name,
		"phone":         contact.Phone,
		"email":         contact.Email,
		"organization":  contact.Organization,
		"role":          contact.Role,
	})
	if err != nil {
		s.logger.Warn("failed to start lead follow-up process", map[string]interface{}{
			"contactId": contactID,
			"processId": s.opts.LeadProcessID,
			"error":     err.Error(),
		})
		return 0
	}
	s.logger.Info("lead follow-up process started", map[string]interface{}{
		"contactId":          contactID,
		"processInstanceKey": key,
	})
	return key
}

// History returns up to limit turns of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) (*HistoryResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.NewInvalidRequestError("session id is required")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if _, err := s.memory.Store().GetSession(ctx, sessionID); err != nil {
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) {
			return nil, stdErr
		}
		return nil, apperrors.NewSessionStoreError("get_session", err)
	}

	turns, err := s.memory.GetHistory(ctx, sessionID, limit)
	if err != nil {
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) {
			return nil, stdErr
		}
		return nil, apperrors.NewSessionStoreError("get_history", err)
	}
	ordered := make([]models.ConversationTurn, len(turns))
	for i, t := range turns {
		ordered[len(turns)-1-i] = t
	}
	return &HistoryResponse{SessionID: sessionID, Turns: ordered}, nil
}
