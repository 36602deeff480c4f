package chatlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPFetcher pages the server's conversations endpoint.
type HTTPFetcher struct {
	baseURL   string
	authToken string
	client    *http.Client
}

func NewHTTPFetcher(baseURL, authToken string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:   baseURL,
		authToken: authToken,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, category string, limit, offset int) ([]Conversation, error) {
	endpoint, err := url.Parse(f.baseURL + "/conversations")
	if err != nil {
		return nil, fmt.Errorf("parse conversations url: %w", err)
	}

	query := endpoint.Query()
	if category != "" {
		query.Set("category", category)
	}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build conversations request: %w", err)
	}
	if f.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.authToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch conversations: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			PeerUserID  int64   `json:"peer_user_id"`
			DisplayName string  `json:"display_name"`
			AvatarURL   *string `json:"avatar_url"`
			Category    string  `json:"category"`
			LastMessage *struct {
				Content      string    `json:"content"`
				Type         string    `json:"type"`
				SenderUserID int64     `json:"sender_user_id"`
				SentAt       time.Time `json:"sent_at"`
			} `json:"last_message"`
			LastActivityAt time.Time `json:"last_activity_at"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode conversations response: %w", err)
	}

	items := make([]Conversation, 0, len(payload.Items))
	for _, item := range payload.Items {
		conv := Conversation{
			PeerUserID:   item.PeerUserID,
			DisplayName:  item.DisplayName,
			Category:     item.Category,
			LastActivity: item.LastActivityAt,
		}
		if item.AvatarURL != nil {
			conv.AvatarURL = *item.AvatarURL
		}
		if item.LastMessage != nil {
			conv.LastMessage = &LastMessage{
				Content:  item.LastMessage.Content,
				Type:     item.LastMessage.Type,
				SenderID: item.LastMessage.SenderUserID,
				SentAt:   item.LastMessage.SentAt,
			}
		}
		items = append(items, conv)
	}

	return items, nil
}
