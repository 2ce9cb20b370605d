package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

type CRMClient struct {
	apiKey     string
	oauthToken string
	baseURL    string
	httpClient *http.Client
}

// Lead is the subset of the Zoho Leads module AIVY writes.
type Lead struct {
	ID          string `json:"id,omitempty"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Company     string `json:"Company,omitempty"`
	Email       string `json:"Email,omitempty"`
	Phone       string `json:"Phone,omitempty"`
	Designation string `json:"Designation,omitempty"`
	LeadSource  string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
}

type writeResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

// NewCRMClient targets baseURL, or DefaultBaseURL when empty.
func NewCRMClient(apiKey, oauthToken, baseURL string) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &CRMClient{
		apiKey:     apiKey,
		oauthToken: oauthToken,
		baseURL:    baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	return c.write(ctx, http.MethodPost, c.baseURL+"/Leads", lead, "create lead")
}

func (c *CRMClient) UpdateLead(ctx context.Context, leadID string, lead *Lead) error {
	_, err := c.write(ctx, http.MethodPut, c.baseURL+"/Leads/"+url.PathEscape(leadID), lead, "update lead")
	return err
}

// SearchLeads looks leads up by one criterion, "email" or "phone". Zoho
// answers 204 when nothing matches.
func (c *CRMClient) SearchLeads(ctx context.Context, field, value string) ([]Lead, error) {
	q := url.Values{}
	q.Set(field, value)
	endpoint := fmt.Sprintf("%s/Leads/search?%s", c.baseURL, q.Encode())

	resp, body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return []Lead{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to search leads (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []Lead `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data, nil
}

func (c *CRMClient) write(ctx context.Context, method, endpoint string, lead *Lead, op string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{"data": []Lead{*lead}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lead: %w", err)
	}

	resp, body, err := c.do(ctx, method, endpoint, payload)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to %s (status %d): %s", op, resp.StatusCode, string(body))
	}

	var wr writeResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(wr.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if wr.Data[0].Status != "success" {
		return "", fmt.Errorf("%s failed: %s", op, wr.Data[0].Message)
	}
	return wr.Data[0].Details.ID, nil
}

func (c *CRMClient) do(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, body, nil
}
