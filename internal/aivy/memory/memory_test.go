package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

// failingStore fails every call that reaches it.
type failingStore struct {
	Store
	err error
}

func (f failingStore) GetSession(context.Context, string) (*models.ConversationSession, error) {
	return nil, f.err
}

func (f failingStore) HasContactInfo(context.Context, string) (bool, error) {
	return false, f.err
}

func (f failingStore) CreateLeadContact(context.Context, string, models.LeadContact) (string, error) {
	return "", f.err
}

func (f failingStore) AppendTurn(context.Context, models.ConversationTurn) error {
	return f.err
}

func TestCoerceUserID(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"3f2b6c1e-8a4d-4c2f-9b1e-2d3c4b5a6f70", true},
		{"3F2B6C1E-8A4D-4C2F-9B1E-2D3C4B5A6F70", true},
		{"3f2b6c1e-8a4d-6c2f-9b1e-2d3c4b5a6f70", false}, // version 6
		{"3f2b6c1e-8a4d-4c2f-7b1e-2d3c4b5a6f70", false}, // variant
		{"user_123", false},
		{"", false},
		{" 3f2b6c1e-8a4d-4c2f-9b1e-2d3c4b5a6f70", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := CoerceUserID(tt.raw)
			if tt.valid {
				require.NotNil(t, got)
				assert.Equal(t, tt.raw, *got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestGenerateSessionIdentifier(t *testing.T) {
	a, b := GenerateSessionIdentifier(), GenerateSessionIdentifier()
	assert.True(t, strings.HasPrefix(a, "anonymous_"))
	assert.Len(t, strings.Split(a, "_"), 3)
	assert.NotEqual(t, a, b)
}

func TestMemory_GetOrCreateSessionIsIdempotent(t *testing.T) {
	m := New(NewInMemoryStore(), 5, logger.NewNoOpLogger())
	ctx := context.Background()

	first, err := m.GetOrCreateSession(ctx, "browser-abc", "not-a-uuid")
	require.NoError(t, err)
	second, err := m.GetOrCreateSession(ctx, "browser-abc", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sess, err := m.Store().GetSession(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, sess.UserID)
	assert.Equal(t, models.EngagementInitial, sess.ConversationState.EngagementLevel)
}

func TestMemory_GetOrCreateSessionConcurrent(t *testing.T) {
	m := New(NewInMemoryStore(), 5, logger.NewNoOpLogger())

	ids := make([]string, 20)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.GetOrCreateSession(context.Background(), "same-visitor", "")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestMemory_GetOrCreateSessionRequiresIdentifier(t *testing.T) {
	m := New(NewInMemoryStore(), 5, logger.NewNoOpLogger())

	_, err := m.GetOrCreateSession(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.AsStandardError(err).Code)
}

func TestMemory_SessionContextIsChronological(t *testing.T) {
	store := NewInMemoryStore()
	m := New(store, 3, logger.NewNoOpLogger())
	ctx := context.Background()

	id, err := m.GetOrCreateSession(ctx, "visitor", "")
	require.NoError(t, err)
	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		require.NoError(t, store.AppendTurn(ctx, models.ConversationTurn{SessionID: id, UserQuery: q}))
	}

	stored, err := m.GetHistory(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"q4", "q3", "q2"}, queries(stored))

	sctx, err := m.GetSessionContext(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "q3", "q4"}, queries(sctx.RecentHistory))
}

func TestMemory_ContextOrDefault(t *testing.T) {
	m := New(failingStore{err: errors.New("connection refused")}, 5, logger.NewNoOpLogger())

	sctx := m.ContextOrDefault(context.Background(), "missing")

	assert.Equal(t, models.DefaultSessionContext(), sctx)
	assert.Equal(t, models.EngagementInitial, sctx.ConversationState.EngagementLevel)
	assert.NotNil(t, sctx.ConversationState.InstitutionContext)
}

func TestMemory_ContactPolicies(t *testing.T) {
	ctx := context.Background()

	broken := New(failingStore{err: errors.New("timeout")}, 5, logger.NewNoOpLogger())
	assert.False(t, broken.HasContactInfo(ctx, "s1"))
	id, ok := broken.CreateLeadContact(ctx, "s1", models.LeadContact{Name: "Ana", Phone: "+15550100"})
	assert.False(t, ok)
	assert.Empty(t, id)

	store := NewInMemoryStore()
	m := New(store, 5, logger.NewNoOpLogger())
	sessionID, err := m.GetOrCreateSession(ctx, "visitor", "")
	require.NoError(t, err)
	assert.False(t, m.HasContactInfo(ctx, sessionID))

	none, err := m.GetLeadContact(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, none)

	id, ok = m.CreateLeadContact(ctx, sessionID, models.LeadContact{Name: "Ana", Phone: "+15550100", Role: "Dean"})
	require.True(t, ok)
	assert.True(t, m.HasContactInfo(ctx, sessionID))

	contact, err := m.GetLeadContact(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, id, contact.ID)
	assert.Equal(t, "Dean", contact.Role)

	sess, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.LeadContactID)
	assert.Equal(t, id, *sess.LeadContactID)
}

func queries(turns []models.ConversationTurn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.UserQuery
	}
	return out
}
