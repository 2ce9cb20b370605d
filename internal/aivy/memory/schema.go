package memory

// Schema creates the conversation tables. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS lead_contacts (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT,
		organization TEXT,
		role TEXT,
		session_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_sessions (
		id UUID PRIMARY KEY,
		session_identifier TEXT NOT NULL UNIQUE,
		user_id UUID,
		executive_profile JSONB NOT NULL DEFAULT '{}'::jsonb,
		conversation_state JSONB NOT NULL DEFAULT '{}'::jsonb,
		lead_contact_id UUID REFERENCES lead_contacts(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_turns (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES conversation_sessions(id) ON DELETE CASCADE,
		user_query TEXT NOT NULL,
		response_content TEXT NOT NULL,
		intent_analysis JSONB NOT NULL,
		knowledge_sources JSONB NOT NULL DEFAULT '[]'::jsonb,
		response_metrics JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_turns_session_created
		ON conversation_turns (session_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_lead_contacts_session ON lead_contacts (session_id)`,
	`CREATE TABLE IF NOT EXISTS ai_analytics (
		id BIGSERIAL PRIMARY KEY,
		event_type TEXT NOT NULL,
		user_id UUID,
		session_id TEXT,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
