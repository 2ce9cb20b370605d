package crmleadsync

// Input mirrors the variables the lead follow-up process is started with.
type Input struct {
	LeadContactID string `json:"leadContactId"`
	SessionID     string `json:"sessionId,omitempty"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Organization  string `json:"organization,omitempty"`
	Role          string `json:"role,omitempty"`
}

type Output struct {
	Synced    bool   `json:"crmSynced"`
	CRMLeadID string `json:"crmLeadId,omitempty"`
	Action    string `json:"crmAction"`
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
)
