package notifysalesteam

type Input struct {
	LeadContactID string `json:"leadContactId"`
	SessionID     string `json:"sessionId,omitempty"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Organization  string `json:"organization,omitempty"`
	Role          string `json:"role,omitempty"`
	CRMLeadID     string `json:"crmLeadId,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "disabled"
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"` // RFC 3339
}

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
