package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tajious/ejare/internal/config"
	"github.com/tajious/ejare/internal/models"
)

// TelegramChannel posts to a fixed chat through the Bot API.
type TelegramChannel struct {
	cfg    config.TelegramConfig
	client *http.Client
}

func NewTelegramChannel(cfg config.TelegramConfig, client *http.Client) *TelegramChannel {
	return &TelegramChannel{cfg: cfg, client: client}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramChannel) Name() models.Channel { return models.ChannelTelegram }

func (t *TelegramChannel) Enabled() bool { return t.cfg.Enabled }

func (t *TelegramChannel) Configured() bool {
	return t.cfg.BotToken != "" && t.cfg.ChatID != ""
}

func (t *TelegramChannel) endpoint(method string) string {
	base := strings.TrimRight(t.cfg.APIURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	return fmt.Sprintf("%s/bot%s/%s", base, t.cfg.BotToken, method)
}

func (t *TelegramChannel) SendContractSigned(ctx context.Context, contract models.Contract) error {
	if !t.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(map[string]string{
		"chat_id": t.cfg.ChatID,
		"text":    signedMessage(contract),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req)
}

// TestConnection calls getMe, which validates the bot token without sending anything.
func (t *TelegramChannel) TestConnection(ctx context.Context) error {
	if !t.Configured() {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint("getMe"), nil)
	if err != nil {
		return err
	}
	return t.do(req)
}

func (t *TelegramChannel) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed telegramResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= 400 || !parsed.OK {
		if parsed.Description != "" {
			return fmt.Errorf("telegram api error: status %d: %s", resp.StatusCode, parsed.Description)
		}
		return fmt.Errorf("telegram api error: status %d", resp.StatusCode)
	}
	return nil
}
