package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"community_chat_client/internal/chat/domain"
)

// HistoryRepository definition conversation history read
type HistoryRepository interface {
	// GetMessages returns the full ordered history of one room as seen
	// by viewerID. The remote store is authoritative.
	GetMessages(ctx context.Context, roomID, viewerID string) ([]domain.Message, error)
}

// ProfileRepository definition user profile read
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// MessageWriteAPI definition confirmed message writes. Edit and delete
// go through here first; the channel event is only a broadcast to
// peers, not the write itself.
type MessageWriteAPI interface {
	EditMessage(ctx context.Context, roomID, messageID, newText string) error
	DeleteMessages(ctx context.Context, roomID string, messageIDs []string) error
}

// RESTClient talks to the platform's document-store API over JSON/HTTP.
// It implements HistoryRepository, ProfileRepository and MessageWriteAPI.
type RESTClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRESTClient create a RESTClient against baseURL, authenticated with
// the session token.
func NewRESTClient(baseURL, sessionToken string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		token:   sessionToken,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// GetMessages read room history for viewerID
func (r *RESTClient) GetMessages(ctx context.Context, roomID, viewerID string) ([]domain.Message, error) {
	u := fmt.Sprintf("%s/api/rooms/%s/messages?viewer=%s",
		r.baseURL, url.PathEscape(roomID), url.QueryEscape(viewerID))

	var messages []domain.Message
	if err := r.do(ctx, http.MethodGet, u, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// GetProfile read one user profile with presence fields
func (r *RESTClient) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	u := fmt.Sprintf("%s/api/users/%s", r.baseURL, url.PathEscape(userID))

	var profile domain.UserProfile
	if err := r.do(ctx, http.MethodGet, u, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// EditMessage confirm an edit against the write API
func (r *RESTClient) EditMessage(ctx context.Context, roomID, messageID, newText string) error {
	u := fmt.Sprintf("%s/api/rooms/%s/messages/%s",
		r.baseURL, url.PathEscape(roomID), url.PathEscape(messageID))

	body := map[string]string{"new_text": newText}
	return r.do(ctx, http.MethodPatch, u, body, nil)
}

// DeleteMessages confirm a delete against the write API
func (r *RESTClient) DeleteMessages(ctx context.Context, roomID string, messageIDs []string) error {
	u := fmt.Sprintf("%s/api/rooms/%s/messages", r.baseURL, url.PathEscape(roomID))

	body := map[string][]string{"message_ids": messageIDs}
	return r.do(ctx, http.MethodDelete, u, body, nil)
}

func (r *RESTClient) do(ctx context.Context, method, u string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, u, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
