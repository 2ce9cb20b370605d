package notifysalesteam

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"aivy-conversation/internal/aivy/intent"
	"aivy-conversation/internal/common/camunda"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

const TaskType = "notify-sales-team"

// Mailer and SMSSender are satisfied by the SES and SNS wrappers in
// internal/common/aws.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) (string, error)
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config *Config
	mailer Mailer
	sms    SMSSender
	errors *apperrors.ErrorHandler
	logger logger.Logger
	now    func() time.Time
}

// NewHandler accepts nil senders; the matching channel is then skipped.
func NewHandler(config *Config, mailer Mailer, sms SMSSender, log logger.Logger) *Handler {
	l := logger.ForComponent(log, TaskType)
	return &Handler{
		config: config,
		mailer: mailer,
		sms:    sms,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
		now:    time.Now,
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
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Phone) == "" {
		return nil, apperrors.NewLeadValidationError("name and phone are required")
	}

	note := models.LeadNotification{
		ID:            uuid.NewString(),
		LeadContactID: input.LeadContactID,
		Channels:      []string{},
		Status:        models.NotificationStatusDisabled,
	}

	if h.config.EmailEnabled && h.mailer != nil && h.config.SalesEmail != "" {
		subject, body := renderEmail(input)
		if _, err := h.mailer.Send(ctx, []string{h.config.SalesEmail}, subject, body); err != nil {
			h.logger.Error("sales email failed", map[string]interface{}{
				"leadContactId": input.LeadContactID,
				"error":         err.Error(),
			})
			return nil, apperrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		note.Channels = append(note.Channels, ChannelEmail)
	}

	if h.shouldText(input) {
		if _, err := h.sms.Send(ctx, h.config.SalesPhone, renderSMS(input)); err != nil {
			h.logger.Error("sales sms failed", map[string]interface{}{
				"leadContactId": input.LeadContactID,
				"error":         err.Error(),
			})
			// The email already went out; a retry would send it again.
			if len(note.Channels) == 0 {
				return nil, apperrors.NewNotificationSendFailedError(ChannelSMS, err)
			}
		} else {
			note.Channels = append(note.Channels, ChannelSMS)
		}
	}

	if len(note.Channels) > 0 {
		note.Status = models.NotificationStatusSent
	}
	note.SentAt = h.now().UTC()

	h.logger.Info("sales team notified", map[string]interface{}{
		"leadContactId": input.LeadContactID,
		"channels":      note.Channels,
		"status":        note.Status,
	})

	return &Output{
		NotificationID: note.ID,
		Status:         note.Status,
		Channels:       note.Channels,
		SentAt:         note.SentAt.Format(time.RFC3339),
	}, nil
}

// shouldText reports whether the lead also warrants an SMS: only budget
// holders, and only when that is switched on.
func (h *Handler) shouldText(input *Input) bool {
	if !h.config.SMSEnabled || h.sms == nil || h.config.SalesPhone == "" || !h.config.SMSForBudgetHolders {
		return false
	}
	return intent.AuthorityForRole(input.Role) == models.AuthorityBudgetHolder
}

func renderEmail(input *Input) (string, string) {
	who := input.Name
	if input.Organization != "" {
		who += " (" + input.Organization + ")"
	}
	subject := "New AIVY lead: " + who

	var b strings.Builder
	fmt.Fprintf(&b, "A visitor shared contact details in the AIVY chat.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", input.Name)
	fmt.Fprintf(&b, "Phone: %s\n", input.Phone)
	if input.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", input.Email)
	}
	if input.Organization != "" {
		fmt.Fprintf(&b, "Organization: %s\n", input.Organization)
	}
	if input.Role != "" {
		fmt.Fprintf(&b, "Role: %s\n", input.Role)
	}
	if input.CRMLeadID != "" {
		fmt.Fprintf(&b, "Zoho lead: %s\n", input.CRMLeadID)
	}
	if input.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", input.SessionID)
	}
	return subject, b.String()
}

func renderSMS(input *Input) string {
	msg := fmt.Sprintf("AIVY lead: %s, %s", input.Name, input.Role)
	if input.Organization != "" {
		msg += " at " + input.Organization
	}
	return msg + ". Call " + input.Phone
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
