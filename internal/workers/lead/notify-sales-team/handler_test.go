package notifysalesteam

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	awsclient "aivy-conversation/internal/common/aws"
	"aivy-conversation/internal/common/config"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, to []string, subject, body string) (string, error) {
	args := m.Called(ctx, to, subject, body)
	return args.String(0), args.Error(1)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) Send(ctx context.Context, phone, message string) (string, error) {
	args := m.Called(ctx, phone, message)
	return args.String(0), args.Error(1)
}

type stubSES struct {
	input *ses.SendEmailInput
}

func (s *stubSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	s.input = in
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func enabledConfig() *Config {
	return &Config{
		Timeout:             time.Second,
		EmailEnabled:        true,
		SMSEnabled:          true,
		SalesEmail:          "sales@fabriiq.com",
		SalesPhone:          "+15550109999",
		SMSForBudgetHolders: true,
	}
}

func presidentLead() *Input {
	return &Input{
		LeadContactID: "lc-1",
		Name:          "Ana Ruiz",
		Phone:         "+15550100200",
		Organization:  "State University",
		Role:          "President",
		CRMLeadID:     "z-1",
	}
}

func TestHandler_ExecuteEmailAndSMSForBudgetHolder(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, []string{"sales@fabriiq.com"}, "New AIVY lead: Ana Ruiz (State University)",
		mock.MatchedBy(func(body string) bool { return strings.Contains(body, "Role: President") })).
		Return("m-1", nil)
	sms := &mockSMS{}
	sms.On("Send", mock.Anything, "+15550109999", "AIVY lead: Ana Ruiz, President at State University. Call +15550100200").
		Return("s-1", nil)

	h := NewHandler(enabledConfig(), mailer, sms, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	out, err := h.Execute(context.Background(), presidentLead())
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail, ChannelSMS}, out.Channels)
	assert.Equal(t, "2026-03-01T09:00:00Z", out.SentAt)
	assert.NotEmpty(t, out.NotificationID)
	mailer.AssertExpectations(t)
	sms.AssertExpectations(t)
}

func TestHandler_ExecuteNoSMSForOtherRoles(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("m-1", nil)
	sms := &mockSMS{}

	in := presidentLead()
	in.Role = "Director of Admissions"
	out, err := NewHandler(enabledConfig(), mailer, sms, logger.NewTestLogger(t)).Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail}, out.Channels)
	sms.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_ExecuteDisabled(t *testing.T) {
	h := NewHandler(DefaultConfig(), nil, nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), presidentLead())
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusDisabled, out.Status)
	assert.Empty(t, out.Channels)
}

func TestHandler_ExecuteFailures(t *testing.T) {
	t.Run("email fails", func(t *testing.T) {
		mailer := &mockMailer{}
		mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("throttled"))

		_, err := NewHandler(enabledConfig(), mailer, &mockSMS{}, logger.NewTestLogger(t)).Execute(context.Background(), presidentLead())
		var stdErr *apperrors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
		assert.True(t, stdErr.Retryable)
	})

	t.Run("sms fails after email", func(t *testing.T) {
		mailer := &mockMailer{}
		mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("m-1", nil)
		sms := &mockSMS{}
		sms.On("Send", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("opted out"))

		out, err := NewHandler(enabledConfig(), mailer, sms, logger.NewTestLogger(t)).Execute(context.Background(), presidentLead())
		require.NoError(t, err)
		assert.Equal(t, []string{ChannelEmail}, out.Channels)
	})

	t.Run("sms only fails", func(t *testing.T) {
		cfg := enabledConfig()
		cfg.EmailEnabled = false
		sms := &mockSMS{}
		sms.On("Send", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("opted out"))

		_, err := NewHandler(cfg, nil, sms, logger.NewTestLogger(t)).Execute(context.Background(), presidentLead())
		var stdErr *apperrors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	})

	t.Run("missing phone", func(t *testing.T) {
		in := presidentLead()
		in.Phone = ""
		_, err := NewHandler(enabledConfig(), nil, nil, logger.NewTestLogger(t)).Execute(context.Background(), in)
		var stdErr *apperrors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, apperrors.ErrCodeLeadValidationFailed, stdErr.Code)
	})
}

func TestHandler_ExecuteWithSESMailer(t *testing.T) {
	api := &stubSES{}
	cfg := enabledConfig()
	cfg.SMSEnabled = false

	h := NewHandler(cfg, awsclient.NewMailer(api, "aivy@fabriiq.com"), nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), presidentLead())
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail}, out.Channels)

	require.NotNil(t, api.input)
	assert.Equal(t, "aivy@fabriiq.com", aws.ToString(api.input.Source))
	assert.Equal(t, []string{"sales@fabriiq.com"}, api.input.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(api.input.Message.Body.Text.Data), "Zoho lead: z-1")
}

func TestConfigFromApp(t *testing.T) {
	app := &config.Config{}
	app.Integrations.AWS.SES.Enabled = true
	app.Notifications.SalesEmail = "sales@fabriiq.com"
	app.Notifications.SMSForBudgetHolders = true

	cfg := ConfigFromApp(app)
	assert.True(t, cfg.EmailEnabled)
	assert.False(t, cfg.SMSEnabled)
	assert.Equal(t, "sales@fabriiq.com", cfg.SalesEmail)
	assert.True(t, cfg.SMSForBudgetHolders)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
