package crmleadsync

import (
	"context"
	"fmt"
	"strings"

	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/zoho"
)

// CRM is the part of the Zoho client the sync uses.
type CRM interface {
	SearchLeads(ctx context.Context, field, value string) ([]zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	UpdateLead(ctx context.Context, leadID string, lead *zoho.Lead) error
}

type Service struct {
	config *Config
	crm    CRM
	logger logger.Logger
}

// NewService with a nil crm skips every sync.
func NewService(config *Config, crm CRM, log logger.Logger) *Service {
	return &Service{config: config, crm: crm, logger: log}
}

// Sync upserts the contact as a Zoho lead. An existing lead is matched by
// phone first, then email.
func (s *Service) Sync(ctx context.Context, input *Input) (*Output, error) {
	if s.crm == nil {
		s.logger.Info("zoho not configured, skipping lead sync", map[string]interface{}{
			"leadContactId": input.LeadContactID,
		})
		return &Output{Action: ActionSkipped}, nil
	}

	lead := s.toLead(input)

	existing, err := s.findExisting(ctx, input)
	if err != nil {
		return nil, apperrors.NewCRMSyncError(err)
	}

	if existing != "" {
		if err := s.crm.UpdateLead(ctx, existing, lead); err != nil {
			return nil, apperrors.NewCRMSyncError(err)
		}
		s.logger.Info("crm lead updated", map[string]interface{}{
			"leadContactId": input.LeadContactID,
			"crmLeadId":     existing,
		})
		return &Output{Synced: true, CRMLeadID: existing, Action: ActionUpdated}, nil
	}

	id, err := s.crm.CreateLead(ctx, lead)
	if err != nil {
		return nil, apperrors.NewCRMSyncError(err)
	}
	s.logger.Info("crm lead created", map[string]interface{}{
		"leadContactId": input.LeadContactID,
		"crmLeadId":     id,
	})
	return &Output{Synced: true, CRMLeadID: id, Action: ActionCreated}, nil
}

func (s *Service) findExisting(ctx context.Context, input *Input) (string, error) {
	lookups := [][2]string{{"phone", input.Phone}, {"email", input.Email}}
	for _, l := range lookups {
		if l[1] == "" {
			continue
		}
		leads, err := s.crm.SearchLeads(ctx, l[0], l[1])
		if err != nil {
			return "", fmt.Errorf("search by %s: %w", l[0], err)
		}
		if len(leads) > 0 {
			return leads[0].ID, nil
		}
	}
	return "", nil
}

func (s *Service) toLead(input *Input) *zoho.Lead {
	first, last := splitName(input.Name)
	company := input.Organization
	if company == "" {
		// Company is mandatory on Zoho leads.
		company = "Unknown"
	}

	var desc []string
	if input.SessionID != "" {
		desc = append(desc, "AIVY session: "+input.SessionID)
	}
	if input.LeadContactID != "" {
		desc = append(desc, "Lead contact: "+input.LeadContactID)
	}

	return &zoho.Lead{
		FirstName:   first,
		LastName:    last,
		Company:     company,
		Email:       input.Email,
		Phone:       input.Phone,
		Designation: input.Role,
		LeadSource:  s.config.LeadSource,
		Description: strings.Join(desc, "\n"),
	}
}

// splitName puts everything after the first word in the last name. A single
// word becomes the last name, which Zoho requires.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
