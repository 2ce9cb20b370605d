package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aivy-conversation/internal/aivy/llm"
	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/aivy/retrieval"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

type stubRetriever struct {
	chunks []models.KnowledgeChunk
	err    error
}

func (r stubRetriever) Retrieve(context.Context, string) ([]models.KnowledgeChunk, error) {
	return r.chunks, r.err
}

type recordingGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	bundles []llm.ContextBundle
}

func (g *recordingGenerator) Generate(_ context.Context, b llm.ContextBundle) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bundles = append(g.bundles, b)
	return g.reply, g.err
}

func (g *recordingGenerator) last() llm.ContextBundle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bundles[len(g.bundles)-1]
}

type mockProcesses struct {
	mock.Mock
}

func (m *mockProcesses) StartProcess(ctx context.Context, id string, vars interface{}) (int64, error) {
	args := m.Called(ctx, id, vars)
	return args.Get(0).(int64), args.Error(1)
}

type unavailableStore struct {
	memory.Store
}

func (unavailableStore) GetOrCreateSession(context.Context, string, *string) (string, error) {
	return "", apperrors.NewSessionStoreError("get_or_create_session", errors.New("connection refused"))
}

type fixture struct {
	store     *memory.InMemoryStore
	generator *recordingGenerator
	service   *Service
}

func newFixture(t *testing.T, retriever retrieval.Retriever, opts Options) *fixture {
	t.Helper()
	store := memory.NewInMemoryStore()
	log := logger.NewTestLogger(t)
	gen := &recordingGenerator{reply: "Phased rollouts work best. What is your timeline?"}
	svc := NewService(Dependencies{
		Memory:    memory.New(store, 5, log),
		Analytics: store,
		Retriever: retriever,
		Generator: gen,
		Logger:    log,
	}, opts)
	t.Cleanup(svc.Wait)
	return &fixture{store: store, generator: gen, service: svc}
}

func chunk(content string, similarity float64) models.KnowledgeChunk {
	return models.KnowledgeChunk{Content: content, Similarity: similarity}
}

func TestResolveIdentifier(t *testing.T) {
	assert.Equal(t, "anon-42", ResolveIdentifier("anon-42"))
	assert.Equal(t, "visitor_1", ResolveIdentifier("  visitor_1 "))
	for _, in := range []string{"", "default", "   "} {
		got := ResolveIdentifier(in)
		assert.True(t, strings.HasPrefix(got, "anonymous_"), "%q resolved to %q", in, got)
	}
}

func TestService_HandleMessage(t *testing.T) {
	chunks := []models.KnowledgeChunk{
		chunk("General campus news and event listings for the spring term.", 0.82),
		chunk("A strategic implementation roadmap for institutional AI adoption, with ROI and governance milestones.", 0.78),
	}
	f := newFixture(t, stubRetriever{chunks: chunks}, Options{})
	ctx := context.Background()

	resp, err := f.service.HandleMessage(ctx, ChatRequest{
		Message:        "How should we plan an AI implementation across departments?",
		ConversationID: "visitor_1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Phased rollouts work best. What is your timeline?", resp.Response)
	assert.Equal(t, "visitor_1", resp.ConversationID)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "decision_support", resp.Intent)
	assert.Equal(t, 2, resp.Sources)
	assert.False(t, resp.ContactCaptured)

	bundle := f.generator.last()
	assert.Equal(t, "How should we plan an AI implementation across departments?", bundle.Query)
	require.Len(t, bundle.Chunks, 2)
	assert.Contains(t, bundle.Chunks[0].Content, "strategic implementation roadmap")
	assert.Empty(t, bundle.History)

	f.service.Wait()
	history, err := f.service.History(ctx, resp.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, history.Turns, 1)
	assert.Equal(t, resp.Response, history.Turns[0].ResponseContent)

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, memory.EventChatMessage, events[0].EventType)
	assert.Equal(t, "visitor_1", events[0].SessionID)
}

func TestService_HandleMessageCarriesHistory(t *testing.T) {
	f := newFixture(t, stubRetriever{}, Options{})
	ctx := context.Background()

	first, err := f.service.HandleMessage(ctx, ChatRequest{Message: "What does AIVY do?", ConversationID: "visitor_2"})
	require.NoError(t, err)
	f.service.Wait()
	_, err = f.service.HandleMessage(ctx, ChatRequest{Message: "What would it cost us?", ConversationID: "visitor_2"})
	require.NoError(t, err)
	f.service.Wait()

	bundle := f.generator.last()
	require.Len(t, bundle.History, 1)
	assert.Equal(t, "What does AIVY do?", bundle.History[0].UserQuery)

	history, err := f.service.History(ctx, first.SessionID, 10)
	require.NoError(t, err)
	require.Len(t, history.Turns, 2)
	assert.Equal(t, "What does AIVY do?", history.Turns[0].UserQuery)
	assert.Equal(t, "What would it cost us?", history.Turns[1].UserQuery)
}

func TestService_HandleMessageGeneratesIdentifier(t *testing.T) {
	f := newFixture(t, stubRetriever{}, Options{})

	resp, err := f.service.HandleMessage(context.Background(), ChatRequest{Message: "hello", ConversationID: "default"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.ConversationID, "anonymous_"))
}

func TestService_HandleMessageRejectsInvalid(t *testing.T) {
	f := newFixture(t, stubRetriever{}, Options{})

	for _, msg := range []string{"", "   ", strings.Repeat("x", MaxMessageLength+1)} {
		_, err := f.service.HandleMessage(context.Background(), ChatRequest{Message: msg})
		var stdErr *apperrors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, apperrors.ErrCodeInvalidRequest, stdErr.Code)
	}
	assert.Empty(t, f.generator.bundles)
}

func TestService_RetrievalFailureDegrades(t *testing.T) {
	f := newFixture(t, stubRetriever{err: retrieval.ErrSearchTimeout}, Options{})

	resp, err := f.service.HandleMessage(context.Background(), ChatRequest{Message: "Tell me about budgets", ConversationID: "v3"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Sources)
	assert.Empty(t, f.generator.last().Chunks)
}

func TestService_SessionStoreFailureAnswersStatelessly(t *testing.T) {
	log := logger.NewTestLogger(t)
	gen := &recordingGenerator{reply: "Here is an overview."}
	svc := NewService(Dependencies{
		Memory:    memory.New(unavailableStore{}, 5, log),
		Generator: gen,
		Logger:    log,
	}, Options{})

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "What is AIVY?", ConversationID: "v4"})
	require.NoError(t, err)
	assert.Equal(t, "Here is an overview.", resp.Response)
	assert.Empty(t, resp.SessionID)
	assert.Equal(t, models.DefaultConversationState(), gen.last().State)
}

func TestService_GenerationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"timeout", llm.ErrLLMTimeout, apperrors.ErrCodeLLMTimeout},
		{"deadline", context.DeadlineExceeded, apperrors.ErrCodeLLMTimeout},
		{"synthesis", llm.ErrLLMSynthesisFailed, apperrors.ErrCodeLLMSynthesisFailed},
		{"standard passthrough", apperrors.NewEmbeddingError(errors.New("down")), apperrors.ErrCodeEmbeddingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, stubRetriever{}, Options{})
			f.generator.err = tt.err

			_, err := f.service.HandleMessage(context.Background(), ChatRequest{Message: "hi", ConversationID: "v5"})
			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Empty(t, f.store.Events(), "no analytics for a failed turn")
		})
	}
}

func TestService_ExecutiveFilter(t *testing.T) {
	chunks := []models.KnowledgeChunk{
		chunk("Configure the API endpoint and database schema through the SDK, then debug the code.", 0.9),
		chunk("Our strategic approach aligns institutional leadership on ROI, budget and governance.", 0.7),
	}
	f := newFixture(t, stubRetriever{chunks: chunks}, Options{ExecutiveFilter: true})

	resp, err := f.service.HandleMessage(context.Background(), ChatRequest{Message: "What is the strategy?", ConversationID: "v6"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Sources)
	assert.Contains(t, f.generator.last().Chunks[0].Content, "strategic approach")
}

func TestService_SubmitLeadContact(t *testing.T) {
	f := newFixture(t, stubRetriever{}, Options{LeadProcessID: "aivy-lead-follow-up"})
	procs := &mockProcesses{}
	f.service.processes = procs
	procs.On("StartProcess", mock.Anything, "aivy-lead-follow-up", mock.MatchedBy(func(v interface{}) bool {
		vars, ok := v.(map[string]interface{})
		return ok && vars["phone"] == "+1 555 010 0200" && vars["leadContactId"] != ""
	})).Return(int64(2251799813685249), nil)

	ctx := context.Background()
	chat, err := f.service.HandleMessage(ctx, ChatRequest{Message: "We are evaluating AIVY", ConversationID: "visitor_9"})
	require.NoError(t, err)
	assert.False(t, chat.ContactCaptured)
	f.service.Wait()

	resp, err := f.service.SubmitLeadContact(ctx, LeadRequest{
		ConversationID: "visitor_9",
		ContactInfo: ContactInfo{
			Name:         "Dr. Ana Ruiz",
			Phone:        "+1 555 010 0200",
			Email:        "provost@university.edu",
			Organization: "State University",
			Role:         "Provost",
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, chat.SessionID, resp.SessionID)
	assert.NotEmpty(t, resp.ContactID)
	assert.Equal(t, int64(2251799813685249), resp.ProcessInstanceKey)
	procs.AssertExpectations(t)

	chat, err = f.service.HandleMessage(ctx, ChatRequest{Message: "Thanks", ConversationID: "visitor_9"})
	require.NoError(t, err)
	assert.True(t, chat.ContactCaptured)
}

func TestService_SubmitLeadContactProcessFailureIsTolerated(t *testing.T) {
	f := newFixture(t, stubRetriever{}, Options{LeadProcessID: "aivy-lead-follow-up"})
	procs := &mockProcesses{}
	f.service.processes = procs
	procs.On("StartProcess", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("broker unavailable"))

	resp, err := f.service.SubmitLeadContact(context.Background(), LeadRequest{
		ContactInfo: ContactInfo{Name: "Sam Lee", Phone: "555-010-0300"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Zero(t, resp.ProcessInstanceKey)
	assert.True(t, strings.HasPrefix(resp.ConversationID, "anonymous_"))
}

func TestService_SubmitLeadContactValidation(t *testing.T) {
	tests := []struct {
		name    string
		contact ContactInfo
		field   string
	}{
		{"missing name", ContactInfo{Phone: "555-010-0300"}, "contactInfo.name"},
		{"blank name", ContactInfo{Name: "  ", Phone: "555-010-0300"}, "contactInfo.name"},
		{"missing phone", ContactInfo{Name: "Sam"}, "contactInfo.phone"},
		{"bad phone", ContactInfo{Name: "Sam", Phone: "call me"}, "contactInfo.phone"},
		{"bad email", ContactInfo{Name: "Sam", Phone: "555-010-0300", Email: "sam@"}, "contactInfo.email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, stubRetriever{}, Options{})
			_, err := f.service.SubmitLeadContact(context.Background(), LeadRequest{ContactInfo: tt.contact})

			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, apperrors.ErrCodeLeadValidationFailed, stdErr.Code)
			assert.Contains(t, stdErr.Details, tt.field)
		})
	}
}

func TestService_HistoryUnknownSession(t *testing.T) {
	f := newFixture(t, stubRetriever{}, Options{})

	_, err := f.service.History(context.Background(), "missing", 5)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeSessionNotFound, stdErr.Code)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(nil)
	assert.Equal(t, DefaultRecordTimeout, opts.RecordTimeout)
	assert.Equal(t, 5*time.Second, opts.RecordTimeout)
}

type blockingTurnStore struct {
	*memory.InMemoryStore
	release chan struct{}
}

func (s *blockingTurnStore) AppendTurn(ctx context.Context, turn models.ConversationTurn) error {
	<-s.release
	return s.InMemoryStore.AppendTurn(ctx, turn)
}

func TestService_HandleMessageDoesNotWaitForRecording(t *testing.T) {
	store := &blockingTurnStore{InMemoryStore: memory.NewInMemoryStore(), release: make(chan struct{})}
	log := logger.NewTestLogger(t)
	svc := NewService(Dependencies{
		Memory:    memory.New(store, 5, log),
		Generator: &recordingGenerator{reply: "Happy to help. What is your timeline?"},
		Logger:    log,
	}, Options{RecordTimeout: time.Minute})
	ctx := context.Background()

	done := make(chan *ChatResponse, 1)
	go func() {
		resp, err := svc.HandleMessage(ctx, ChatRequest{Message: "What is AIVY?", ConversationID: "visitor_12"})
		assert.NoError(t, err)
		done <- resp
	}()

	var resp *ChatResponse
	select {
	case resp = <-done:
	case <-time.After(2 * time.Second):
		close(store.release)
		t.Fatal("HandleMessage blocked on turn recording")
	}
	require.NotNil(t, resp)

	history, err := svc.History(ctx, resp.SessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, history.Turns)

	close(store.release)
	svc.Wait()

	history, err = svc.History(ctx, resp.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, history.Turns, 1)
	assert.Equal(t, "What is AIVY?", history.Turns[0].UserQuery)
}
