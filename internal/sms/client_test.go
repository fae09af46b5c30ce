package sms

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speettolab/speetto-monitor/internal/speetto"
)

const testSecret = "test-secret-key"

var authPattern = regexp.MustCompile(
	`^HMAC-SHA256 apiKey=([^,]+), date=(\d+), salt=([A-Za-z0-9]{32}), signature=([0-9a-f]{64})$`)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "test-api-key", testSecret, 5*time.Second, nil)
	require.NotNil(t, client)
	return client, server
}

func TestSendSignsRequest(t *testing.T) {
	var authHeader string
	var body []byte

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"statusCode":"2000","messageId":"M1"}`))
	})

	res := client.Send(context.Background(), Message{
		To:   "010-1234-5678",
		From: "01067790104",
		Text: "hello",
		Type: "LMS",
	})
	require.True(t, res.Success)
	assert.Equal(t, "M1", res.MessageID)

	m := authPattern.FindStringSubmatch(authHeader)
	require.NotNil(t, m, "unexpected Authorization header: %s", authHeader)
	assert.Equal(t, "test-api-key", m[1])

	// Recompute the digest the provider would verify:
	// method + path + date + salt + body under the shared secret.
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("POST" + sendPath + m[2] + m[3]))
	mac.Write(body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), m[4])

	// Phone numbers must be transmitted digits-only.
	assert.Contains(t, string(body), `"to":"01012345678"`)
	assert.Contains(t, string(body), `"type":"LMS"`)
}

func TestSendProviderRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"statusCode":"4041","statusMessage":"insufficient balance"}`))
	})

	res := client.Send(context.Background(), Message{To: "01012345678", From: "0100000", Text: "x"})
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient balance", res.ErrorMessage)
}

func TestSendHTTPErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("forbidden"))
	})

	res := client.Send(context.Background(), Message{To: "01012345678", From: "0100000", Text: "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "403")
}

func TestSendNilClientFailsFast(t *testing.T) {
	var client *Client
	res := client.Send(context.Background(), Message{To: "01012345678", From: "0100000", Text: "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "not configured")
}

func TestNewClientRequiresCredentials(t *testing.T) {
	assert.Nil(t, NewClient(DefaultBaseURL, "", "secret", time.Second, nil))
	assert.Nil(t, NewClient(DefaultBaseURL, "key", "", time.Second, nil))
	assert.NotNil(t, NewClient(DefaultBaseURL, "key", "secret", time.Second, nil))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "01012345678", NormalizePhone("010-1234-5678"))
	assert.Equal(t, "821012345678", NormalizePhone("+82 (10) 1234 5678"))
	assert.Equal(t, "", NormalizePhone("no digits"))
}

func TestBuildAlertMessage(t *testing.T) {
	now := time.Date(2025, 9, 19, 15, 4, 5, 0, time.UTC)
	msg := BuildAlertMessage(speetto.Speetto1000, 99, 100, 3, now)
	assert.Contains(t, msg, "스피또1000 99회")
	assert.Contains(t, msg, "출고율: 100%")
	assert.Contains(t, msg, "1등 잔여: 3매")
	assert.Contains(t, msg, "2025-09-19 15:04:05")
}
