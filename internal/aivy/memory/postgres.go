package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

// PostgresStore keeps JSON columns as text parameters so lib/pq does not
// send them as bytea.
type PostgresStore struct {
	db     *sql.DB
	now    func() time.Time
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now, logger: logger.ForComponent(log, "postgres-store")}
}

const (
	upsertSessionSQL = `
		INSERT INTO conversation_sessions (id, session_identifier, user_id, executive_profile, conversation_state)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_identifier) DO UPDATE
			SET user_id = COALESCE(conversation_sessions.user_id, EXCLUDED.user_id)
		RETURNING id`

	selectSessionSQL = `
		SELECT id, session_identifier, user_id, executive_profile, conversation_state,
		       lead_contact_id, created_at, updated_at
		FROM conversation_sessions WHERE id = $1`

	selectHistorySQL = `
		SELECT id, session_id, user_query, response_content, intent_analysis,
		       knowledge_sources, response_metrics, created_at
		FROM conversation_turns
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	insertTurnSQL = `
		INSERT INTO conversation_turns (id, session_id, user_query, response_content,
			intent_analysis, knowledge_sources, response_metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	countTurnsSQL = `SELECT COUNT(*) FROM conversation_turns WHERE session_id = $1`

	updateStateSQL = `
		UPDATE conversation_sessions
		SET executive_profile = $2, conversation_state = $3, updated_at = NOW()
		WHERE id = $1`

	hasContactSQL = `SELECT EXISTS (SELECT 1 FROM lead_contacts WHERE session_id = $1)`

	insertLeadSQL = `
		INSERT INTO lead_contacts (id, name, phone, email, organization, role, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	linkLeadSQL = `
		UPDATE conversation_sessions SET lead_contact_id = $1, updated_at = NOW()
		WHERE id = $2`

	selectLeadSQL = `
		SELECT id, name, phone, email, organization, role, session_id, created_at, updated_at
		FROM lead_contacts
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
)

func (s *PostgresStore) GetOrCreateSession(ctx context.Context, identifier string, userID *string) (string, error) {
	profile, _ := json.Marshal(models.ExecutiveProfile{})
	state, _ := json.Marshal(models.DefaultConversationState())

	var id string
	err := s.db.QueryRowContext(ctx, upsertSessionSQL,
		uuid.NewString(), identifier, userID, string(profile), string(state),
	).Scan(&id)
	if err != nil {
		return "", apperrors.NewSessionStoreError("get_or_create_session", err)
	}
	return id, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*models.ConversationSession, error) {
	var (
		sess                 models.ConversationSession
		userID, leadID       sql.NullString
		profileRaw, stateRaw []byte
	)
	err := s.db.QueryRowContext(ctx, selectSessionSQL, sessionID).Scan(
		&sess.ID, &sess.SessionIdentifier, &userID, &profileRaw, &stateRaw,
		&leadID, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, apperrors.NewSessionStoreError("get_session", err)
	}

	sess.UserID = nullableString(userID)
	sess.LeadContactID = nullableString(leadID)
	if len(profileRaw) > 0 {
		if err := json.Unmarshal(profileRaw, &sess.ExecutiveProfile); err != nil {
			return nil, apperrors.NewSessionStoreError("decode_profile", err)
		}
	}
	sess.ConversationState = models.DefaultConversationState()
	if len(stateRaw) > 0 {
		if err := json.Unmarshal(stateRaw, &sess.ConversationState); err != nil {
			return nil, apperrors.NewSessionStoreError("decode_state", err)
		}
	}
	sess.ConversationState = sess.ConversationState.Clone()
	return &sess, nil
}

func (s *PostgresStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, selectHistorySQL, sessionID, limit)
	if err != nil {
		return nil, apperrors.NewSessionStoreError("get_history", err)
	}
	defer rows.Close()

	turns := []models.ConversationTurn{}
	for rows.Next() {
		var (
			t                                 models.ConversationTurn
			intentRaw, sourcesRaw, metricsRaw []byte
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserQuery, &t.ResponseContent,
			&intentRaw, &sourcesRaw, &metricsRaw, &t.CreatedAt); err != nil {
			return nil, apperrors.NewSessionStoreError("scan_turn", err)
		}
		// Snapshots written by older versions may be partial; decode what we can.
		s.decodeSnapshot(t.ID, "intent_analysis", intentRaw, &t.IntentAnalysis)
		s.decodeSnapshot(t.ID, "knowledge_sources", sourcesRaw, &t.KnowledgeSources)
		s.decodeSnapshot(t.ID, "response_metrics", metricsRaw, &t.ResponseMetrics)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewSessionStoreError("get_history", err)
	}
	return turns, nil
}

func (s *PostgresStore) decodeSnapshot(turnID, column string, raw []byte, dst interface{}) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("undecodable turn snapshot", map[string]interface{}{
			"turnId": turnID,
			"column": column,
			"error":  err,
		})
	}
}

func (s *PostgresStore) AppendTurn(ctx context.Context, turn models.ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now().UTC()
	}
	if turn.KnowledgeSources == nil {
		turn.KnowledgeSources = []models.KnowledgeChunk{}
	}

	intentRaw, err := json.Marshal(turn.IntentAnalysis)
	if err != nil {
		return apperrors.NewSessionStoreError("encode_intent", err)
	}
	sourcesRaw, err := json.Marshal(turn.KnowledgeSources)
	if err != nil {
		return apperrors.NewSessionStoreError("encode_sources", err)
	}
	metricsRaw, err := json.Marshal(turn.ResponseMetrics)
	if err != nil {
		return apperrors.NewSessionStoreError("encode_metrics", err)
	}

	if _, err := s.db.ExecContext(ctx, insertTurnSQL,
		turn.ID, turn.SessionID, turn.UserQuery, turn.ResponseContent,
		string(intentRaw), string(sourcesRaw), string(metricsRaw), turn.CreatedAt,
	); err != nil {
		return apperrors.NewSessionStoreError("append_turn", err)
	}
	return nil
}

func (s *PostgresStore) CountTurns(ctx context.Context, sessionID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countTurnsSQL, sessionID).Scan(&n); err != nil {
		return 0, apperrors.NewSessionStoreError("count_turns", err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateSessionState(ctx context.Context, sessionID string, profile models.ExecutiveProfile, state models.ConversationState) error {
	profileRaw, err := json.Marshal(profile)
	if err != nil {
		return apperrors.NewSessionStoreError("encode_profile", err)
	}
	stateRaw, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewSessionStoreError("encode_state", err)
	}

	res, err := s.db.ExecContext(ctx, updateStateSQL, sessionID, string(profileRaw), string(stateRaw))
	if err != nil {
		return apperrors.NewSessionStoreError("update_state", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewSessionNotFoundError(sessionID)
	}
	return nil
}

func (s *PostgresStore) HasContactInfo(ctx context.Context, sessionID string) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, hasContactSQL, sessionID).Scan(&ok); err != nil {
		return false, apperrors.NewSessionStoreError("has_contact_info", err)
	}
	return ok, nil
}

// CreateLeadContact inserts the contact and, when sessionID is set, links it
// from the session in the same transaction.
func (s *PostgresStore) CreateLeadContact(ctx context.Context, sessionID string, contact models.LeadContact) (string, error) {
	id := contact.ID
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", apperrors.NewSessionStoreError("create_lead_contact", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertLeadSQL,
		id, contact.Name, contact.Phone,
		nullIfEmpty(contact.Email), nullIfEmpty(contact.Organization), nullIfEmpty(contact.Role),
		nullIfEmpty(sessionID),
	); err != nil {
		return "", apperrors.NewSessionStoreError("create_lead_contact", err)
	}

	if sessionID != "" {
		if _, err := tx.ExecContext(ctx, linkLeadSQL, id, sessionID); err != nil {
			return "", apperrors.NewSessionStoreError("link_lead_contact", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", apperrors.NewSessionStoreError("create_lead_contact", fmt.Errorf("commit: %w", err))
	}
	return id, nil
}

func (s *PostgresStore) GetLeadContact(ctx context.Context, sessionID string) (*models.LeadContact, error) {
	var (
		c                         models.LeadContact
		email, org, role, sessRef sql.NullString
	)
	err := s.db.QueryRowContext(ctx, selectLeadSQL, sessionID).Scan(
		&c.ID, &c.Name, &c.Phone, &email, &org, &role, &sessRef, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewSessionStoreError("get_lead_contact", err)
	}
	c.Email = email.String
	c.Organization = org.String
	c.Role = role.String
	c.SessionID = nullableString(sessRef)
	return &c, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
