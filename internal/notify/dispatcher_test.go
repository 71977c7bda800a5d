package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tajious/ejare/internal/metrics"
	"github.com/tajious/ejare/internal/models"
)

type fakeChannel struct {
	name       models.Channel
	enabled    bool
	configured bool
	sendErr    error
	panics     bool
	calls      atomic.Int32
	codeCalls  atomic.Int32
}

func (f *fakeChannel) Name() models.Channel { return f.name }
func (f *fakeChannel) Enabled() bool        { return f.enabled }
func (f *fakeChannel) Configured() bool     { return f.configured }

func (f *fakeChannel) SendContractSigned(context.Context, models.Contract) error {
	f.calls.Add(1)
	if f.panics {
		panic("provider exploded")
	}
	return f.sendErr
}

func (f *fakeChannel) TestConnection(context.Context) error {
	if f.panics {
		panic("probe exploded")
	}
	return f.sendErr
}

type fakeEmail struct{ fakeChannel }

func (f *fakeEmail) SendAccessCode(context.Context, models.Contract) error {
	f.codeCalls.Add(1)
	return f.sendErr
}

type staticSource []Channel

func (s staticSource) Channels(context.Context) ([]Channel, error) { return s, nil }

func TestNotifyContractSignedRecordsEveryChannel(t *testing.T) {
	email := &fakeEmail{fakeChannel{name: models.ChannelEmail, enabled: true, configured: true, sendErr: errors.New("smtp down")}}
	telegram := &fakeChannel{name: models.ChannelTelegram, enabled: true, configured: true, panics: true}
	whatsapp := &fakeChannel{name: models.ChannelWhatsApp, enabled: true, configured: true}

	reg := prometheus.NewRegistry()
	d := NewDispatcher(staticSource{email, telegram, whatsapp}, metrics.New(reg), nil)

	res := d.NotifyContractSigned(context.Background(), models.Contract{ContractNumber: "RNT1"})

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Channels, 3)
	assert.Equal(t, "smtp down", res.Channels[models.ChannelEmail].Error)
	assert.Contains(t, res.Channels[models.ChannelTelegram].Error, "panic")
	assert.True(t, res.Channels[models.ChannelWhatsApp].Success)

	assert.Equal(t, 3, testutil.CollectAndCount(reg, "ejare_notifications_total"))
}

func TestNotifyContractSignedSkipsUnavailableChannels(t *testing.T) {
	disabled := &fakeChannel{name: models.ChannelEmail, enabled: false, configured: true}
	unconfigured := &fakeChannel{name: models.ChannelTelegram, enabled: true, configured: false}
	failing := &fakeChannel{name: models.ChannelWhatsApp, enabled: true, configured: true, sendErr: errors.New("401")}

	d := NewDispatcher(staticSource{disabled, unconfigured, failing}, nil, nil)
	res := d.NotifyContractSigned(context.Background(), models.Contract{})

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempted)
	assert.Zero(t, disabled.calls.Load())
	assert.Zero(t, unconfigured.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestNotifyContractSignedSurvivesCancelledContext(t *testing.T) {
	ch := &fakeChannel{name: models.ChannelTelegram, enabled: true, configured: true}
	d := NewDispatcher(staticSource{ch}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := d.NotifyContractSigned(ctx, models.Contract{})
	assert.True(t, res.Success)
}

func TestNotifyContractCreatedUsesAccessCodeSenders(t *testing.T) {
	email := &fakeEmail{fakeChannel{name: models.ChannelEmail, enabled: true, configured: true}}
	telegram := &fakeChannel{name: models.ChannelTelegram, enabled: true, configured: true}

	d := NewDispatcher(staticSource{email, telegram}, nil, nil)
	assert.True(t, d.NotifyContractCreated(context.Background(), models.Contract{TenantEmail: "t@x.com"}))
	assert.Equal(t, int32(1), email.codeCalls.Load())
	assert.Zero(t, telegram.calls.Load())

	email.enabled = false
	assert.False(t, d.NotifyContractCreated(context.Background(), models.Contract{}))
}

func TestTestAllReportsPerChannel(t *testing.T) {
	ok := &fakeChannel{name: models.ChannelEmail, enabled: true, configured: true}
	broken := &fakeChannel{name: models.ChannelTelegram, enabled: false, configured: true, panics: true}
	missing := &fakeChannel{name: models.ChannelWhatsApp, enabled: true}

	d := NewDispatcher(staticSource{ok, broken, missing}, nil, nil)
	out, err := d.TestAll(context.Background())
	require.NoError(t, err)

	assert.True(t, out[models.ChannelEmail].Success)
	assert.False(t, out[models.ChannelTelegram].Success)
	assert.Contains(t, out[models.ChannelTelegram].Error, "panic")
	assert.False(t, out[models.ChannelWhatsApp].Success)
	assert.Equal(t, ErrNotConfigured.Error(), out[models.ChannelWhatsApp].Error)
}
