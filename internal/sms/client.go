// Package sms delivers alert messages through the SOLAPI messaging API.
//
// Requests are authenticated with an HMAC-SHA256 signature over
// method + path + timestamp + salt + body under the secret key. Delivery
// failures are returned as a structured Result, never as a Go error, so the
// monitoring loop can record the outcome and move on.
package sms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultBaseURL = "https://api.solapi.com"

	sendPath = "/messages/v4/send"

	// Provider status code for an accepted message.
	statusAccepted = "2000"

	saltLength = 32
	saltChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Message is a single outbound SMS/LMS.
type Message struct {
	To   string
	From string
	Text string
	Type string // "SMS" | "LMS" | "MMS"; empty defaults to SMS
}

// Result is the outcome of one delivery attempt.
type Result struct {
	Success      bool
	MessageID    string
	ErrorMessage string
}

// Client is a SOLAPI HTTP client.
// Nil-safe: a nil client reports every send as a configuration failure, so
// the monitor still persists readings when credentials are absent.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secretKey  string
	logger     *slog.Logger
}

// NewClient creates a SOLAPI client. Returns nil when either credential is
// empty (SMS delivery disabled).
func NewClient(baseURL, apiKey, secretKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if apiKey == "" || secretKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		secretKey:  secretKey,
		logger:     logger,
	}
}

type sendRequest struct {
	Message sendMessage `json:"message"`
}

type sendMessage struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type sendResponse struct {
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	MessageID     string `json:"messageId"`
}

// Send delivers one message. Every failure mode — missing configuration,
// transport error, provider rejection — comes back as a Result.
func (c *Client) Send(ctx context.Context, m Message) Result {
	if c == nil {
		return Result{ErrorMessage: "SMS delivery not configured (missing SOLAPI credentials)"}
	}

	msgType := m.Type
	if msgType == "" {
		msgType = "SMS"
	}
	payload := sendRequest{Message: sendMessage{
		To:   NormalizePhone(m.To),
		From: NormalizePhone(m.From),
		Text: m.Text,
		Type: msgType,
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("encode message: %v", err)}
	}

	date := strconv.FormatInt(time.Now().UnixMilli(), 10)
	salt := newSalt()
	signature := c.sign(http.MethodPost, sendPath, date, salt, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Authorization", fmt.Sprintf(
		"HMAC-SHA256 apiKey=%s, date=%s, salt=%s, signature=%s",
		c.apiKey, date, salt, signature))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("solapi request: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{ErrorMessage: fmt.Sprintf("solapi returned %d: %s", resp.StatusCode, truncate(respBody, 200))}
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{ErrorMessage: fmt.Sprintf("decode response: %v", err)}
	}

	if parsed.StatusCode != statusAccepted {
		msg := parsed.StatusMessage
		if msg == "" {
			msg = "message rejected by provider"
		}
		c.logger.Warn("SMS rejected", "status_code", parsed.StatusCode, "status_message", msg)
		return Result{ErrorMessage: msg}
	}

	c.logger.Info("SMS sent", "message_id", parsed.MessageID)
	return Result{Success: true, MessageID: parsed.MessageID}
}

// sign computes the hex HMAC-SHA256 signature SOLAPI expects: the digest of
// method + path + date + salt + body under the secret key.
func (c *Client) sign(method, path, date, salt string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(method + path + date + salt))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newSalt() string {
	b := make([]byte, saltLength)
	for i := range b {
		b[i] = saltChars[rand.IntN(len(saltChars))]
	}
	return string(b)
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
