package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/tajious/ejare/internal/config"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
)

const maskedValue = "********"

// settingKeys lists the provider fields an admin may override per channel.
// Secret keys are masked when settings are read back.
var settingKeys = map[models.Channel]map[string]bool{
	models.ChannelEmail:    {"host": false, "port": false, "user": false, "pass": true, "from": false},
	models.ChannelTelegram: {"botToken": true, "chatId": false},
	models.ChannelWhatsApp: {"accountSid": false, "authToken": true, "number": false, "to": false},
}

// ChannelSource yields the channels as currently configured.
type ChannelSource interface {
	Channels(ctx context.Context) ([]Channel, error)
}

// ChannelSettings is the admin view of one channel.
type ChannelSettings struct {
	Channel    models.Channel    `json:"channel"`
	Enabled    bool              `json:"enabled"`
	Configured bool              `json:"configured"`
	Config     map[string]string `json:"config"`
}

type SettingsUpdate struct {
	Channel models.Channel    `json:"channel" validate:"required,oneof=email telegram whatsapp"`
	Enabled *bool             `json:"enabled"`
	Config  map[string]string `json:"config"`
}

// Settings merges stored per-channel overrides onto the environment
// configuration. A stored row replaces the enabled flag and any non-empty
// field it carries.
type Settings struct {
	store  storage.SettingsStore
	env    config.NotifyConfig
	client *http.Client
}

func NewSettings(store storage.SettingsStore, env config.NotifyConfig) *Settings {
	return &Settings{
		store:  store,
		env:    env,
		client: &http.Client{Timeout: env.HTTPTimeout},
	}
}

func (s *Settings) Resolve(ctx context.Context) (config.NotifyConfig, map[models.Channel]map[string]string, error) {
	cfg := s.env
	overrides := map[models.Channel]map[string]string{}
	if s.store == nil {
		return cfg, overrides, nil
	}

	rows, err := s.store.ListNotificationSettings(ctx)
	if err != nil {
		return cfg, nil, err
	}
	for _, row := range rows {
		values := map[string]string{}
		if row.Config != "" {
			if err := json.Unmarshal([]byte(row.Config), &values); err != nil {
				return cfg, nil, fmt.Errorf("decoding %s settings: %w", row.Channel, err)
			}
		}
		overrides[row.Channel] = values
		applyOverride(&cfg, row.Channel, row.Enabled, values)
	}
	return cfg, overrides, nil
}

func applyOverride(cfg *config.NotifyConfig, ch models.Channel, enabled bool, values map[string]string) {
	set := func(dst *string, key string) {
		if v := values[key]; v != "" {
			*dst = v
		}
	}
	switch ch {
	case models.ChannelEmail:
		cfg.Email.Enabled = enabled
		set(&cfg.Email.Host, "host")
		set(&cfg.Email.User, "user")
		set(&cfg.Email.Pass, "pass")
		set(&cfg.Email.From, "from")
		if port, err := strconv.Atoi(values["port"]); err == nil && port > 0 {
			cfg.Email.Port = port
		}
	case models.ChannelTelegram:
		cfg.Telegram.Enabled = enabled
		set(&cfg.Telegram.BotToken, "botToken")
		set(&cfg.Telegram.ChatID, "chatId")
	case models.ChannelWhatsApp:
		cfg.WhatsApp.Enabled = enabled
		set(&cfg.WhatsApp.AccountSID, "accountSid")
		set(&cfg.WhatsApp.AuthToken, "authToken")
		set(&cfg.WhatsApp.Number, "number")
		set(&cfg.WhatsApp.To, "to")
	}
}

// Build constructs the three channels from a resolved configuration.
func Build(cfg config.NotifyConfig, client *http.Client) []Channel {
	return []Channel{
		NewEmailChannel(cfg.Email, cfg.HTTPTimeout),
		NewTelegramChannel(cfg.Telegram, client),
		NewWhatsAppChannel(cfg.WhatsApp, client),
	}
}

func (s *Settings) Channels(ctx context.Context) ([]Channel, error) {
	cfg, _, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return Build(cfg, s.client), nil
}

func (s *Settings) List(ctx context.Context) ([]ChannelSettings, error) {
	cfg, _, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	channels := Build(cfg, s.client)
	out := make([]ChannelSettings, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ChannelSettings{
			Channel:    ch.Name(),
			Enabled:    ch.Enabled(),
			Configured: ch.Configured(),
			Config:     maskSecrets(ch.Name(), effectiveValues(cfg, ch.Name())),
		})
	}
	return out, nil
}

func effectiveValues(cfg config.NotifyConfig, ch models.Channel) map[string]string {
	switch ch {
	case models.ChannelEmail:
		port := ""
		if cfg.Email.Port > 0 {
			port = strconv.Itoa(cfg.Email.Port)
		}
		return map[string]string{"host": cfg.Email.Host, "port": port, "user": cfg.Email.User, "pass": cfg.Email.Pass, "from": cfg.Email.From}
	case models.ChannelTelegram:
		return map[string]string{"botToken": cfg.Telegram.BotToken, "chatId": cfg.Telegram.ChatID}
	case models.ChannelWhatsApp:
		return map[string]string{"accountSid": cfg.WhatsApp.AccountSID, "authToken": cfg.WhatsApp.AuthToken, "number": cfg.WhatsApp.Number, "to": cfg.WhatsApp.To}
	}
	return map[string]string{}
}

func maskSecrets(ch models.Channel, values map[string]string) map[string]string {
	for key, secret := range settingKeys[ch] {
		if secret && values[key] != "" {
			values[key] = maskedValue
		}
	}
	return values
}

// Update stores the given overrides. Masked secret values keep the stored secret.
func (s *Settings) Update(ctx context.Context, updates []SettingsUpdate, actorID string) error {
	resolved, current, err := s.Resolve(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to load notification settings")
	}

	rows := make([]*models.NotificationSetting, 0, len(updates))
	for _, u := range updates {
		allowed, ok := settingKeys[u.Channel]
		if !ok {
			return apperrors.New(apperrors.CodeValidation, "کانال اطلاع‌رسانی نامعتبر است").
				WithDetails(map[string]string{"channel": string(u.Channel)})
		}

		values := map[string]string{}
		for k, v := range current[u.Channel] {
			values[k] = v
		}
		for key, value := range u.Config {
			if _, known := allowed[key]; !known {
				return apperrors.New(apperrors.CodeValidation, "فیلد تنظیمات نامعتبر است").
					WithDetails(map[string]string{"field": key, "channel": string(u.Channel)})
			}
			if value == maskedValue {
				continue
			}
			values[key] = value
		}
		if port := values["port"]; port != "" {
			if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
				return apperrors.New(apperrors.CodeValidation, "شماره پورت نامعتبر است")
			}
		}

		enabled := channelEnabled(resolved, u.Channel)
		if u.Enabled != nil {
			enabled = *u.Enabled
		}

		raw, err := json.Marshal(values)
		if err != nil {
			return err
		}
		rows = append(rows, &models.NotificationSetting{
			Channel:   u.Channel,
			Enabled:   enabled,
			Config:    string(raw),
			UpdatedBy: actorID,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Channel < rows[j].Channel })
	for _, row := range rows {
		if err := s.store.SaveNotificationSetting(ctx, row); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to save notification settings")
		}
	}
	return nil
}

func channelEnabled(cfg config.NotifyConfig, ch models.Channel) bool {
	switch ch {
	case models.ChannelEmail:
		return cfg.Email.Enabled
	case models.ChannelTelegram:
		return cfg.Telegram.Enabled
	case models.ChannelWhatsApp:
		return cfg.WhatsApp.Enabled
	}
	return false
}
