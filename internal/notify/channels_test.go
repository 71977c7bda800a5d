package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tajious/ejare/internal/config"
	"github.com/tajious/ejare/internal/models"
)

func signedContract() models.Contract {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return models.Contract{
		ContractNumber:  "RNT1700000000000123",
		TenantName:      "علی رضایی",
		LandlordEmail:   "landlord@x.com",
		LandlordPhone:   "09121234567",
		PropertyAddress: "تهران، ونک",
		RentAmount:      5000000,
		StartDate:       "2024-01-01",
		EndDate:         "2024-12-31",
		SignedAt:        &at,
	}
}

func TestTelegramSendMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	ch := NewTelegramChannel(config.TelegramConfig{Enabled: true, BotToken: "TOKEN", ChatID: "42", APIURL: srv.URL}, srv.Client())
	require.True(t, ch.Configured())
	require.NoError(t, ch.SendContractSigned(context.Background(), signedContract()))

	assert.Equal(t, "42", got["chat_id"])
	assert.Contains(t, got["text"], "RNT1700000000000123")
	assert.Contains(t, got["text"], "5,000,000")
}

func TestTelegramReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botBAD/getMe", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	ch := NewTelegramChannel(config.TelegramConfig{BotToken: "BAD", ChatID: "1", APIURL: srv.URL}, srv.Client())
	err := ch.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestTelegramUnconfigured(t *testing.T) {
	ch := NewTelegramChannel(config.TelegramConfig{Enabled: true, BotToken: "x"}, http.DefaultClient)
	assert.False(t, ch.Configured())
	assert.ErrorIs(t, ch.SendContractSigned(context.Background(), signedContract()), ErrNotConfigured)
}

func TestWhatsAppSendsToLandlordPhone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+14155238886", r.PostForm.Get("From"))
		assert.Equal(t, "whatsapp:+989121234567", r.PostForm.Get("To"))
		assert.True(t, strings.Contains(r.PostForm.Get("Body"), "RNT1700000000000123"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	ch := NewWhatsAppChannel(config.WhatsAppConfig{
		Enabled:    true,
		AccountSID: "AC123",
		AuthToken:  "secret",
		Number:     "+14155238886",
		To:         "09350000000",
		APIURL:     srv.URL,
	}, srv.Client())
	require.NoError(t, ch.SendContractSigned(context.Background(), signedContract()))
}

func TestWhatsAppFallsBackToConfiguredRecipient(t *testing.T) {
	var to string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		to = r.PostForm.Get("To")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ch := NewWhatsAppChannel(config.WhatsAppConfig{AccountSID: "AC1", AuthToken: "t", Number: "+14155238886", To: "09350000000", APIURL: srv.URL}, srv.Client())
	c := signedContract()
	c.LandlordPhone = ""
	require.NoError(t, ch.SendContractSigned(context.Background(), c))
	assert.Equal(t, "whatsapp:+989350000000", to)

	noRecipient := NewWhatsAppChannel(config.WhatsAppConfig{AccountSID: "AC1", AuthToken: "t", Number: "+14155238886", APIURL: srv.URL}, srv.Client())
	assert.ErrorIs(t, noRecipient.SendContractSigned(context.Background(), c), ErrNoRecipient)
}

func TestWhatsAppReportsTwilioError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":20003,"message":"Authenticate"}`))
	}))
	defer srv.Close()

	ch := NewWhatsAppChannel(config.WhatsAppConfig{AccountSID: "AC1", AuthToken: "bad", Number: "+14155238886", APIURL: srv.URL}, srv.Client())
	err := ch.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authenticate")
}

func TestEmailBuildsMessages(t *testing.T) {
	ch := NewEmailChannel(config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, User: "bot@example.com"}, time.Second)

	var to []string
	var msg string
	ch.send = func(_ context.Context, rcpt []string, raw []byte) error {
		to = rcpt
		msg = string(raw)
		return nil
	}

	require.NoError(t, ch.SendContractSigned(context.Background(), signedContract()))
	assert.Equal(t, []string{"landlord@x.com"}, to)
	assert.Contains(t, msg, "From: bot@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?b?")
	assert.Contains(t, msg, "RNT1700000000000123")

	c := signedContract()
	c.TenantEmail = "tenant@x.com"
	c.AccessCode = "654321"
	require.NoError(t, ch.SendAccessCode(context.Background(), c))
	assert.Equal(t, []string{"tenant@x.com"}, to)
	assert.Contains(t, msg, "654321")
}

func TestEmailUnconfigured(t *testing.T) {
	ch := NewEmailChannel(config.EmailConfig{Enabled: true}, time.Second)
	assert.False(t, ch.Configured())
	assert.ErrorIs(t, ch.TestConnection(context.Background()), ErrNotConfigured)
}
