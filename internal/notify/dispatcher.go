package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/metrics"
	"github.com/tajious/ejare/internal/models"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type ChannelResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result aggregates one fan-out. Success means at least one channel delivered.
type Result struct {
	Attempted int                              `json:"attempted"`
	Succeeded int                              `json:"succeeded"`
	Success   bool                             `json:"success"`
	Channels  map[models.Channel]ChannelResult `json:"channels"`
}

// ProbeResult is reported per channel by TestAll.
type ProbeResult struct {
	Enabled    bool   `json:"enabled"`
	Configured bool   `json:"configured"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type Dispatcher struct {
	source  ChannelSource
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewDispatcher(source ChannelSource, m *metrics.Metrics, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{source: source, metrics: m, logger: log}
}

// NotifyContractSigned sends to every enabled and configured channel
// concurrently and waits for all of them. Channel failures are recorded and
// logged, never returned.
func (d *Dispatcher) NotifyContractSigned(ctx context.Context, contract models.Contract) Result {
	result := Result{Channels: map[models.Channel]ChannelResult{}}

	channels, err := d.source.Channels(ctx)
	if err != nil {
		d.logger.Error(ctx, "failed to resolve notification channels", err)
		return result
	}

	// Sends outlive a cancelled request: the signature is already stored.
	sendCtx := context.WithoutCancel(ctx)

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	for _, ch := range channels {
		if !available(ch) {
			continue
		}
		ch := ch
		result.Attempted++
		g.Go(func() error {
			err := safeCall(func() error { return ch.SendContractSigned(sendCtx, contract) })
			d.metrics.Notification(string(ch.Name()), err == nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Channels[ch.Name()] = ChannelResult{Error: err.Error()}
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
				return nil
			}
			result.Channels[ch.Name()] = ChannelResult{Success: true}
			result.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	result.Success = result.Succeeded > 0
	if errs != nil {
		logCtx := d.logger.WithFields(ctx, map[string]any{
			"contract_number": contract.ContractNumber,
			"attempted":       result.Attempted,
			"succeeded":       result.Succeeded,
		})
		d.logger.Error(logCtx, "contract signed notification failed on some channels", errs)
	}
	return result
}

// NotifyContractCreated sends the access code to the tenant on channels that
// can address the tenant directly. It reports whether any send succeeded.
func (d *Dispatcher) NotifyContractCreated(ctx context.Context, contract models.Contract) bool {
	channels, err := d.source.Channels(ctx)
	if err != nil {
		d.logger.Error(ctx, "failed to resolve notification channels", err)
		return false
	}

	sent := false
	for _, ch := range channels {
		sender, ok := ch.(AccessCodeSender)
		if !ok || !available(ch) {
			continue
		}
		err := safeCall(func() error { return sender.SendAccessCode(ctx, contract) })
		d.metrics.Notification(string(ch.Name()), err == nil)
		if err != nil {
			logCtx := d.logger.WithFields(ctx, map[string]any{
				"channel":         string(ch.Name()),
				"contract_number": contract.ContractNumber,
			})
			d.logger.Error(logCtx, "failed to send access code", err)
			continue
		}
		sent = true
	}
	return sent
}

// TestAll probes every configured channel independently.
func (d *Dispatcher) TestAll(ctx context.Context) (map[models.Channel]ProbeResult, error) {
	channels, err := d.source.Channels(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		g   errgroup.Group
		out = make(map[models.Channel]ProbeResult, len(channels))
	)
	for _, ch := range channels {
		ch := ch
		g.Go(func() error {
			res := ProbeResult{Enabled: ch.Enabled(), Configured: ch.Configured()}
			if !res.Configured {
				res.Error = ErrNotConfigured.Error()
			} else if err := safeCall(func() error { return ch.TestConnection(ctx) }); err != nil {
				res.Error = err.Error()
			} else {
				res.Success = true
			}

			mu.Lock()
			out[ch.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
