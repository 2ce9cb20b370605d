package crmleadsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"aivy-conversation/internal/common/camunda"
	"aivy-conversation/internal/common/config"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/zoho"
)

const TaskType = "crm-lead-sync"

type Handler struct {
	config  *Config
	service *Service
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	// CRM overrides the Zoho client built from AppConfig.
	CRM    CRM
	Logger logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	cfg := opts.CustomConfig
	if cfg == nil {
		cfg = ConfigFromApp(opts.AppConfig)
	}

	l := logger.ForComponent(opts.Logger, TaskType)

	crm := opts.CRM
	if crm == nil && opts.AppConfig != nil {
		z := opts.AppConfig.Integrations.Zoho
		if z.APIKey != "" && z.AuthToken != "" {
			crm = zoho.NewCRMClient(z.APIKey, z.AuthToken, z.BaseURL)
		}
	}

	return &Handler{
		config:  cfg,
		service: NewService(cfg, crm, l),
		errors:  apperrors.NewErrorHandler(l),
		logger:  l,
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
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" || input.Phone == "" {
		return nil, apperrors.NewLeadValidationError("name and phone are required")
	}
	return h.service.Sync(ctx, input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
