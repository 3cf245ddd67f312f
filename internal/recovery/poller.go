// Package recovery drains the client-side pending tracker: for every refno
// placed but not yet confirmed delivered, it re-syncs the order with the
// server and either renders the card, surfaces a terminal failure, or leaves
// the refno for the next cycle. It runs on mount and whenever the network
// monitor confirms a stable reconnection.
package recovery

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xeromart/storefront/internal/client"
	"github.com/xeromart/storefront/internal/storage"
	"github.com/xeromart/storefront/internal/tracker"
	"github.com/xeromart/storefront/pkg/types"
)

// OrderAPI is the slice of the API client the poller uses.
type OrderAPI interface {
	Status(ctx context.Context, refno string) (*types.StatusData, error)
	ForceUpdate(ctx context.Context, refno string) error
	Details(ctx context.Context, refno string) (*types.DetailsData, error)
}

// Notifier surfaces terminal outcomes to the buyer. Transient outcomes are
// never surfaced; they retry silently.
type Notifier interface {
	CardReady(card *types.DetailsData)
	OrderCanceled(refno string)
	OrderFailed(refno string)
}

// Options tunes the poller's timing.
type Options struct {
	// InitialDelay before the first pass, so recovery does not race a
	// just-placed order's own first status check.
	InitialDelay time.Duration
	// RetryInterval between passes while the tracker is non-empty.
	RetryInterval time.Duration
	// SecretsRetryWait before the one inline re-fetch when an order reads
	// COMPLETE without card secrets.
	SecretsRetryWait time.Duration
}

func (o *Options) applyDefaults() {
	if o.InitialDelay <= 0 {
		o.InitialDelay = 2 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 5 * time.Second
	}
	if o.SecretsRetryWait <= 0 {
		o.SecretsRetryWait = 2 * time.Second
	}
}

// Gate is the network monitor surface the poller consults: whether the link
// is currently usable, and a channel delivering confirmed restorations.
type Gate interface {
	Online() bool
	Restored() <-chan struct{}
}

// Poller owns the recovery loop for one client session.
type Poller struct {
	api       OrderAPI
	pending   *tracker.Tracker
	completed *tracker.CompletedSet
	notifier  Notifier
	gate      Gate
	opts      Options

	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewPoller creates a poller. gate may be nil when no network monitor is
// attached (one-shot usage).
func NewPoller(api OrderAPI, pending *tracker.Tracker, completed *tracker.CompletedSet, notifier Notifier, gate Gate, opts Options) *Poller {
	opts.applyDefaults()
	return &Poller{
		api:       api,
		pending:   pending,
		completed: completed,
		notifier:  notifier,
		gate:      gate,
		opts:      opts,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the recovery loop: an initial pass after InitialDelay, then
// a pass every RetryInterval while refnos remain outstanding, plus a pass on
// every confirmed network restoration. Calling Start more than once is a
// no-op.
func (p *Poller) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go p.run()
}

// Stop cancels the loop. A pass in flight is abandoned; the tracker was
// durably written before it began, so the next Start retries the same refnos.
// Safe to call repeatedly, and returns immediately if Start was never called.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	if p.started.Load() {
		<-p.done
	}
}

func (p *Poller) run() {
	defer close(p.done)

	select {
	case <-p.stop:
		return
	case <-time.After(p.opts.InitialDelay):
	}

	if p.online() {
		p.runPass()
	}

	var restored <-chan struct{}
	if p.gate != nil {
		restored = p.gate.Restored()
	}

	ticker := time.NewTicker(p.opts.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if p.pending.Len() > 0 && p.online() {
				p.runPass()
			}
		case <-restored:
			p.runPass()
		}
	}
}

// online reports whether the gate allows network work. With no gate the
// poller always proceeds; a failed pass is just transient.
func (p *Poller) online() bool {
	return p.gate == nil || p.gate.Online()
}

func (p *Poller) runPass() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	p.RunPass(ctx)
}

// outcome of resolving one refno.
type outcome int

const (
	outcomeTransient outcome = iota // stays in the tracker
	outcomeResolved                 // leaves the tracker
)

// RunPass resolves every outstanding refno once, concurrently and
// independently, then removes all resolved refnos from the tracker in one
// batch write.
func (p *Poller) RunPass(ctx context.Context) {
	refnos := p.pending.List()
	if len(refnos) == 0 {
		return
	}

	var (
		mu       sync.Mutex
		resolved []string
		wg       sync.WaitGroup
	)

	for _, refno := range refnos {
		wg.Add(1)
		go func(refno string) {
			defer wg.Done()
			if p.resolve(ctx, refno, false) == outcomeResolved {
				mu.Lock()
				resolved = append(resolved, refno)
				mu.Unlock()
			}
		}(refno)
	}
	wg.Wait()

	if len(resolved) > 0 {
		if err := p.pending.RemoveMany(resolved); err != nil {
			log.Printf("Warning: failed to persist pending tracker: %v", err)
		}
	}
}

// ResolveFresh runs the checkout-time resolution for refnos the placement
// call just returned. The refnos are persisted to the tracker first, then
// resolved without the initial force-update (the records are fresh);
// whatever stays transient is simply left in the tracker for the recovery
// loop.
func (p *Poller) ResolveFresh(ctx context.Context, refnos []string) {
	for _, refno := range refnos {
		if err := p.pending.Add(refno); err != nil {
			log.Printf("Warning: failed to persist pending refno %s: %v", refno, err)
		}
	}

	var (
		mu       sync.Mutex
		resolved []string
		wg       sync.WaitGroup
	)

	for _, refno := range refnos {
		wg.Add(1)
		go func(refno string) {
			defer wg.Done()
			if p.resolve(ctx, refno, true) == outcomeResolved {
				mu.Lock()
				resolved = append(resolved, refno)
				mu.Unlock()
			}
		}(refno)
	}
	wg.Wait()

	if len(resolved) > 0 {
		if err := p.pending.RemoveMany(resolved); err != nil {
			log.Printf("Warning: failed to persist pending tracker: %v", err)
		}
	}
}

// resolve walks one refno through the resolution steps. fresh skips the
// initial force-update for records the placement call just created.
func (p *Poller) resolve(ctx context.Context, refno string, fresh bool) outcome {
	// Already rendered: nothing to do but drop the stale tracker entry.
	if p.completed.Contains(refno) {
		return outcomeResolved
	}

	// Non-authoritative refnos never reach the network.
	if !types.AuthoritativeRefno(refno) {
		log.Printf("Warning: dropping non-authoritative refno %q", refno)
		return outcomeResolved
	}

	if !fresh {
		// Best-effort: proceed to the status check regardless of outcome.
		if err := p.api.ForceUpdate(ctx, refno); err != nil {
			log.Printf("Warning: force-update of %s failed: %v", refno, err)
		}
	}

	st, err := p.api.Status(ctx, refno)
	if err != nil {
		if client.KindOf(err) == client.KindNotFound {
			// Stale or never created server-side; drop without retry.
			log.Printf("Warning: refno %s unknown to server, dropping", refno)
			return outcomeResolved
		}
		return outcomeTransient
	}

	switch {
	case st.Status == storage.StatusComplete || st.LocalStatus == storage.LocalCompleted:
		return p.resolveComplete(ctx, refno)
	case st.Status == storage.StatusCanceled:
		p.notifier.OrderCanceled(refno)
		return outcomeResolved
	case st.Status == storage.StatusError:
		p.notifier.OrderFailed(refno)
		return outcomeResolved
	default:
		// Still pending or processing upstream.
		return outcomeTransient
	}
}

// resolveComplete fetches details for an order that reads complete. A record
// can momentarily read COMPLETE before its card secrets land; in that case
// one inline force-update and re-fetch is attempted, and if the secrets are
// still missing the refno is treated as transient. Delivery is never claimed
// without observed non-empty secrets.
func (p *Poller) resolveComplete(ctx context.Context, refno string) outcome {
	details, err := p.api.Details(ctx, refno)
	if err != nil {
		if client.KindOf(err) == client.KindNotFound {
			return outcomeResolved
		}
		return outcomeTransient
	}

	if !hasSecrets(details) {
		if err := p.api.ForceUpdate(ctx, refno); err != nil {
			log.Printf("Warning: force-update of %s failed: %v", refno, err)
		}

		select {
		case <-ctx.Done():
			return outcomeTransient
		case <-time.After(p.opts.SecretsRetryWait):
		}

		details, err = p.api.Details(ctx, refno)
		if err != nil || !hasSecrets(details) {
			return outcomeTransient
		}
	}

	if err := p.completed.Add(refno); err != nil {
		log.Printf("Warning: failed to persist completed set: %v", err)
	}
	p.notifier.CardReady(details)
	return outcomeResolved
}

func hasSecrets(d *types.DetailsData) bool {
	return d.CardNumber != "" && d.CardPin != ""
}
