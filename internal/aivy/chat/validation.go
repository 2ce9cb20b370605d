package chat

import (
	"strings"

	"aivy-conversation/internal/common/validation"
)

const MaxMessageLength = 4000

func ChatRequestSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"message"},
		Properties: map[string]validation.Property{
			"message": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(MaxMessageLength),
			},
			"conversationId": {Type: "string", MaxLength: validation.IntPtr(200)},
			"userId":         {Type: "string"},
		},
	}
}

func LeadRequestSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"contactInfo"},
		Properties: map[string]validation.Property{
			"contactInfo": {
				Type:     "object",
				Required: []string{"name", "phone"},
				Properties: map[string]validation.Property{
					"name":         {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(200)},
					"phone":        {Type: "string", MinLength: validation.IntPtr(1)},
					"email":        {Type: "string", Format: "email"},
					"organization": {Type: "string"},
					"role":         {Type: "string"},
				},
			},
			"conversationId": {Type: "string", MaxLength: validation.IntPtr(200)},
			"userId":         {Type: "string"},
		},
	}
}

// validateChatRequest returns the problems with req, or nil.
func validateChatRequest(req ChatRequest) ([]string, error) {
	res, err := validation.Validate(req, ChatRequestSchema())
	if err != nil {
		return nil, err
	}
	problems := res.GetErrorMessages()
	if res.Valid && strings.TrimSpace(req.Message) == "" {
		problems = append(problems, "message: must not be blank")
	}
	return problems, nil
}

func validateLeadRequest(req LeadRequest) ([]string, error) {
	// empty optional strings would trip the email format check
	doc := map[string]interface{}{
		"contactInfo": compact(map[string]string{
			"name":         req.ContactInfo.Name,
			"phone":        req.ContactInfo.Phone,
			"email":        req.ContactInfo.Email,
			"organization": req.ContactInfo.Organization,
			"role":         req.ContactInfo.Role,
		}),
		"conversationId": req.ConversationID,
		"userId":         req.UserID,
	}
	res, err := validation.Validate(doc, LeadRequestSchema())
	if err != nil {
		return nil, err
	}
	problems := res.GetErrorMessages()
	if strings.TrimSpace(req.ContactInfo.Name) == "" && !res.HasErrors("contactInfo.name") {
		problems = append(problems, "contactInfo.name: must not be blank")
	}
	if req.ContactInfo.Phone != "" && !validation.ValidatePhone(req.ContactInfo.Phone) {
		problems = append(problems, "contactInfo.phone: not a phone number")
	}
	return problems, nil
}

func compact(fields map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
