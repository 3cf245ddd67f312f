package order

import (
	"context"
	"log"
	"time"
)

// Reconciler periodically re-syncs PENDING orders against the upstream
// issuer so records converge even when no client ever calls force-update.
// It is a cancellable scheduled task: the owner must call Stop on teardown.
type Reconciler struct {
	service  *Service
	interval time.Duration
	batch    int

	stop chan struct{}
	done chan struct{}
}

// NewReconciler creates a reconciler over the given service.
func NewReconciler(service *Service, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		service:  service,
		interval: interval,
		batch:    50,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (r *Reconciler) Stop() {
	close(r.stop)
	<-r.done
}

func (r *Reconciler) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.pass()
		}
	}
}

func (r *Reconciler) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	pending, err := r.service.store.ListPending(r.batch)
	if err != nil {
		log.Printf("Warning: reconciler could not list pending orders: %v", err)
		return
	}

	for _, rec := range pending {
		// Leave just-created records to their own placement flow.
		if time.Since(rec.CreatedAt) < r.interval {
			continue
		}
		if err := r.service.ForceUpdate(ctx, rec.Refno); err != nil {
			log.Printf("Warning: reconciler sync of %s failed: %v", rec.Refno, err)
		}
	}
}
