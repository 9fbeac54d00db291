// Package client is a small HTTP client for the chat server REST surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const userHeader = "user"

type Participant struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type Message struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

type messageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// StatusError is returned for any non 2xx answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat server answered %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Join(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/participants", "", map[string]string{"name": name}, nil)
}

func (c *Client) Heartbeat(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/status", name, nil, nil)
}

func (c *Client) Participants(ctx context.Context) ([]Participant, error) {
	var participants []Participant
	err := c.do(ctx, http.MethodGet, "/participants", "", nil, &participants)
	return participants, err
}

func (c *Client) Post(ctx context.Context, from, to, text, kind string) (Message, error) {
	var message Message
	err := c.do(ctx, http.MethodPost, "/messages", from, messageRequest{To: to, Text: text, Type: kind}, &message)
	return message, err
}

// Messages returns what viewer may read. A limit of zero asks for the whole history.
func (c *Client) Messages(ctx context.Context, viewer string, limit int) ([]Message, error) {
	path := "/messages"
	if limit > 0 {
		path += "?" + url.Values{"limit": []string{strconv.Itoa(limit)}}.Encode()
	}
	var messages []Message
	err := c.do(ctx, http.MethodGet, path, viewer, nil, &messages)
	return messages, err
}

func (c *Client) Update(ctx context.Context, requester, id, to, text, kind string) (Message, error) {
	var message Message
	err := c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(id), requester,
		messageRequest{To: to, Text: text, Type: kind}, &message)
	return message, err
}

func (c *Client) Delete(ctx context.Context, requester, id string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), requester, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, user string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(userHeader, user)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
