package zoho

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRMClient_CreateLead(t *testing.T) {
	var got map[string][]Lead
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Leads", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","status":"success","details":{"id":"z-100"}}]}`))
	}))
	defer srv.Close()

	c := NewCRMClient("key", "token", srv.URL)
	id, err := c.CreateLead(context.Background(), &Lead{LastName: "Ruiz", FirstName: "Ana", Phone: "+15550100", LeadSource: "AIVY Chat"})
	require.NoError(t, err)
	assert.Equal(t, "z-100", id)
	require.Len(t, got["data"], 1)
	assert.Equal(t, "Ruiz", got["data"][0].LastName)
	assert.Equal(t, "AIVY Chat", got["data"][0].LeadSource)
}

func TestCRMClient_WriteFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusBadRequest, `{"code":"INVALID_DATA"}`},
		{"status not success", http.StatusOK, `{"data":[{"status":"error","message":"duplicate data"}]}`},
		{"empty data", http.StatusOK, `{"data":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewCRMClient("key", "token", srv.URL).CreateLead(context.Background(), &Lead{LastName: "X"})
			assert.Error(t, err)
		})
	}
}

func TestCRMClient_SearchAndUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Query().Get("phone") == "+15550100":
			_, _ = w.Write([]byte(`{"data":[{"id":"z-7","Last_Name":"Ruiz","Phone":"+15550100"}]}`))
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPut && r.URL.Path == "/Leads/z-7":
			_, _ = w.Write([]byte(`{"data":[{"status":"success","details":{"id":"z-7"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewCRMClient("key", "token", srv.URL)
	ctx := context.Background()

	leads, err := c.SearchLeads(ctx, "phone", "+15550100")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "z-7", leads[0].ID)

	none, err := c.SearchLeads(ctx, "email", "nobody@example.edu")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, c.UpdateLead(ctx, "z-7", &Lead{LastName: "Ruiz", Designation: "Provost"}))
}

func TestNewCRMClient_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewCRMClient("k", "t", "").baseURL)
}
