// README: HTTP implementation of the tracking backend client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ridetrack/internal/apperrors"
	"ridetrack/internal/modules/chat"
	"ridetrack/internal/modules/location"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/modules/tripmod"
	"ridetrack/internal/types"
)

// Client is the full backend surface the engine consumes. The HTTP
// implementation below satisfies it; each module depends only on the
// narrow slice it declares itself.
type Client interface {
	GetOrder(ctx context.Context, id types.ID) (*order.Order, error)
	DriverLocation(ctx context.Context, orderID types.ID) (location.Fix, error)
	Messages(ctx context.Context, orderID types.ID, page, limit int) (chat.Page, error)
	SendMessage(ctx context.Context, orderID types.ID, text string, mtype chat.MessageType, nonce string) (chat.Message, error)
	MarkMessagesRead(ctx context.Context, orderID types.ID, ids []string) error
	SendTypingIndicator(ctx context.Context, orderID types.ID, typing bool) error
	QuoteFareAdjustment(ctx context.Context, orderID types.ID, req tripmod.Request) (tripmod.Quote, error)
	RequestTripModification(ctx context.Context, orderID types.ID, req tripmod.Request) error
}

// HTTPClient talks JSON over REST to the ride-hail backend. Timeouts
// are enforced here; the engine only reacts to success or failure.
type HTTPClient struct {
	base string
	http *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetOrder(ctx context.Context, id types.ID) (*order.Order, error) {
	var dto orderDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%s", id), nil, &dto); err != nil {
		return nil, err
	}
	o := dto.toDomain()
	return &o, nil
}

func (c *HTTPClient) DriverLocation(ctx context.Context, orderID types.ID) (location.Fix, error) {
	var dto fixDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%s/driver/location", orderID), nil, &dto); err != nil {
		return location.Fix{}, err
	}
	return dto.toDomain(), nil
}

func (c *HTTPClient) Messages(ctx context.Context, orderID types.ID, page, limit int) (chat.Page, error) {
	var dto pageDTO
	path := fmt.Sprintf("/orders/%s/messages?page=%d&limit=%d", orderID, page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &dto); err != nil {
		return chat.Page{}, err
	}
	return dto.toDomain(), nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, orderID types.ID, text string, mtype chat.MessageType, nonce string) (chat.Message, error) {
	body := map[string]any{"content": text, "type": string(mtype), "client_nonce": nonce}
	var dto messageDTO
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/messages", orderID), body, &dto); err != nil {
		return chat.Message{}, err
	}
	return dto.toDomain(), nil
}

func (c *HTTPClient) MarkMessagesRead(ctx context.Context, orderID types.ID, ids []string) error {
	body := map[string]any{"message_ids": ids}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/messages/read", orderID), body, nil)
}

func (c *HTTPClient) SendTypingIndicator(ctx context.Context, orderID types.ID, typing bool) error {
	body := map[string]any{"typing": typing}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/typing", orderID), body, nil)
}

func (c *HTTPClient) QuoteFareAdjustment(ctx context.Context, orderID types.ID, req tripmod.Request) (tripmod.Quote, error) {
	var dto quoteDTO
	path := fmt.Sprintf("/orders/%s/modification/quote", orderID)
	if err := c.do(ctx, http.MethodPost, path, modificationDTOFrom(req), &dto); err != nil {
		return tripmod.Quote{}, err
	}
	return dto.toDomain(), nil
}

func (c *HTTPClient) RequestTripModification(ctx context.Context, orderID types.ID, req tripmod.Request) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/modification", orderID), modificationDTOFrom(req), nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperrors.NetworkError{Detail: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrOrderNotFound
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &apperrors.ValidationError{Detail: readErrorDetail(resp.Body)}
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: %s %s returned %d", apperrors.ErrUnknown, method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", apperrors.ErrUnknown, path, err)
	}
	return nil
}

func readErrorDetail(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "request rejected"
}
