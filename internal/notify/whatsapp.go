package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tajious/ejare/internal/config"
	"github.com/tajious/ejare/internal/models"
)

// WhatsAppChannel sends through the Twilio Messages API.
type WhatsAppChannel struct {
	cfg    config.WhatsAppConfig
	client *http.Client
}

func NewWhatsAppChannel(cfg config.WhatsAppConfig, client *http.Client) *WhatsAppChannel {
	return &WhatsAppChannel{cfg: cfg, client: client}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (w *WhatsAppChannel) Name() models.Channel { return models.ChannelWhatsApp }

func (w *WhatsAppChannel) Enabled() bool { return w.cfg.Enabled }

func (w *WhatsAppChannel) Configured() bool {
	return w.cfg.AccountSID != "" && w.cfg.AuthToken != "" && w.cfg.Number != ""
}

func (w *WhatsAppChannel) accountURL(suffix string) string {
	base := strings.TrimRight(w.cfg.APIURL, "/")
	if base == "" {
		base = "https://api.twilio.com"
	}
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s%s", base, url.PathEscape(w.cfg.AccountSID), suffix)
}

// recipient prefers the landlord's own phone and falls back to WHATSAPP_TO.
func (w *WhatsAppChannel) recipient(contract models.Contract) (string, error) {
	for _, candidate := range []string{contract.LandlordPhone, w.cfg.To} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		return FormatPhoneNumber(candidate)
	}
	return "", ErrNoRecipient
}

func (w *WhatsAppChannel) SendContractSigned(ctx context.Context, contract models.Contract) error {
	if !w.Configured() {
		return ErrNotConfigured
	}
	to, err := w.recipient(contract)
	if err != nil {
		return err
	}
	from, err := FormatPhoneNumber(w.cfg.Number)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("From", "whatsapp:"+from)
	form.Set("To", "whatsapp:"+to)
	form.Set("Body", signedMessage(contract))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.accountURL("/Messages.json"), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return w.do(req)
}

// TestConnection fetches the account resource, which checks the credentials only.
func (w *WhatsAppChannel) TestConnection(ctx context.Context) error {
	if !w.Configured() {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.accountURL(".json"), nil)
	if err != nil {
		return err
	}
	return w.do(req)
}

func (w *WhatsAppChannel) do(req *http.Request) error {
	req.SetBasicAuth(w.cfg.AccountSID, w.cfg.AuthToken)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr twilioError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("twilio api error: status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("twilio api error: status %d", resp.StatusCode)
	}
	return nil
}
