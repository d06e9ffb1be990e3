package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triagemhq/triagemd/internal/config"
)

func newTestClient(baseURL string) *Client {
	c := New(config.WhatsAppConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+5511999990000",
		Timeout:    5 * time.Second,
	})
	c.BaseURL = baseURL
	return c
}

func TestSend(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	var gotUser, gotPass string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()

		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"From": r.PostFormValue("From"),
			"To":   r.PostFormValue("To"),
			"Body": r.PostFormValue("Body"),
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid": "SM123", "status": "queued", "to": "whatsapp:+5511999990001"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	msg, err := client.Send(context.Background(), "+5511999990001", "Caso aprovado")
	require.NoError(t, err)

	require.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	require.Equal(t, "AC123", gotUser)
	require.Equal(t, "secret", gotPass)
	require.Equal(t, "whatsapp:+5511999990000", gotForm["From"])
	require.Equal(t, "whatsapp:+5511999990001", gotForm["To"])
	require.Equal(t, "Caso aprovado", gotForm["Body"])

	require.Equal(t, "SM123", msg.SID)
	require.Equal(t, "queued", msg.Status)
}

func TestSendKeepsExistingPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "whatsapp:+5511999990001", r.PostFormValue("To"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid": "SM1", "status": "queued"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Send(context.Background(), "whatsapp:+5511999990001", "oi")
	require.NoError(t, err)
}

func TestSendHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code": 20003, "message": "Authentication Error"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Send(context.Background(), "+5511999990001", "oi")

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	require.Equal(t, http.StatusUnauthorized, sendErr.StatusCode)
	require.Contains(t, sendErr.Message, "Authentication Error")
}

func TestSendMissingRecipient(t *testing.T) {
	client := newTestClient("http://unused")
	_, err := client.Send(context.Background(), "  ", "oi")
	require.Error(t, err)
}
