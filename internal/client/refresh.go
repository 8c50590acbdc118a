package client

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type refreshOutcome struct {
	token string
	err   error
}

type pendingRefresh struct {
	requestID string
	done      chan refreshOutcome
}

// refresher makes sure at most one refresh runs at a time. Callers that need a
// new token while one is being fetched are parked until it completes.
type refresher struct {
	mu       sync.Mutex
	inFlight bool
	queue    []pendingRefresh

	log *zap.SugaredLogger
}

func newRefresher(log *zap.SugaredLogger) *refresher {
	return &refresher{log: log}
}

// acquireOrWait runs refresh as the leader when no refresh is in flight, or
// waits for the running one otherwise. Either way the caller gets the outcome
// of exactly one refresh. The refresh is not cancelled with ctx; a parked
// caller only stops waiting.
func (r *refresher) acquireOrWait(
	ctx context.Context,
	requestID string,
	refresh func(context.Context) (string, error),
) (string, error) {
	r.mu.Lock()
	if r.inFlight {
		p := pendingRefresh{requestID: requestID, done: make(chan refreshOutcome, 1)}
		r.queue = append(r.queue, p)
		queued := len(r.queue)
		r.mu.Unlock()

		r.log.Debugw("waiting for token refresh", "request_id", requestID, "queued", queued)
		select {
		case out := <-p.done:
			return out.token, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	r.inFlight = true
	r.mu.Unlock()

	r.log.Infow("refreshing access token", "request_id", requestID)

	// Settled from a defer so waiters are released even if refresh panics.
	out := refreshOutcome{err: ErrRefreshFailed}
	defer func() { r.release(requestID, out) }()

	out.token, out.err = refresh(context.WithoutCancel(ctx))
	return out.token, out.err
}

// release detaches the queue and clears the flag under one lock. Every
// detached waiter gets out exactly once.
func (r *refresher) release(requestID string, out refreshOutcome) {
	r.mu.Lock()
	waiters := r.queue
	r.queue = nil
	r.inFlight = false
	r.mu.Unlock()

	if out.err != nil {
		r.log.Errorw("token refresh failed", "request_id", requestID, "waiters", len(waiters), "error", out.err)
	} else {
		r.log.Infow("token refreshed", "request_id", requestID, "waiters", len(waiters))
	}
	for _, w := range waiters {
		w.done <- out
	}
}

func (r *refresher) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}
