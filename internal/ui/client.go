package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"atelier/internal/models"
	"atelier/internal/stream"
)

// Client talks to the atelier server over HTTP. Run streams; everything
// else is plain JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// Run starts an agent run and returns a reader over its event stream.
// The caller owns the reader and must Close it.
func (c *Client) Run(ctx context.Context, req models.RunRequest) (*stream.EventReader, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/agent/run", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return stream.NewEventReader(resp), nil
}

func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationListItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/conversations", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var items []models.ConversationListItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Publish(ctx context.Context, id, title string, state models.ComponentDraft) error {
	body, err := json.Marshal(map[string]interface{}{
		"title": title,
		"state": state,
	})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/components/"+id+"/publish", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// GetComponent fetches the last published state of a component.
func (c *Client) GetComponent(ctx context.Context, id string) (string, models.ComponentDraft, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/components/"+id, nil)
	if err != nil {
		return "", models.ComponentDraft{}, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", models.ComponentDraft{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", models.ComponentDraft{}, decodeError(resp)
	}
	var payload struct {
		Title string                `json:"title"`
		State models.ComponentDraft `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", models.ComponentDraft{}, err
	}
	return payload.Title, payload.State, nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("server: %s", payload.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
