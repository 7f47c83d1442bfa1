// Package history reconciles remotely indexed transaction history with
// locally known pending submissions into one display stream.
package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/storage"
)

// DefaultPageSize is how many records one remote page carries.
const DefaultPageSize = 50

// RemoteSource is the indexer-side history API. Pages are numbered
// from 1 and ordered newest first.
type RemoteSource interface {
	FetchPage(ctx context.Context, account string, page, pageSize int) (*domain.HistoryPage, error)

	// FetchTransaction returns the indexed record for one hash, or nil
	// when the indexer does not know it yet.
	FetchTransaction(ctx context.Context, hash string) (*domain.TransactionRecord, error)
}

// Handler merges remote pages with local pending records and publishes
// HistoryState snapshots. All mutating methods are serialized; a fetch
// started before an account switch can never corrupt the cache of the
// new account.
type Handler struct {
	remote RemoteSource
	store  storage.TransactionStore
	logger *log.Logger

	pageSize int
	loc      *time.Location
	now      func() time.Time

	mu         sync.Mutex
	account    string
	gen        uint64 // bumped on every account switch
	records    []*domain.TransactionRecord
	page       int
	endReached bool
	loading    bool
	closed     bool

	states chan domain.HistoryState
}

// Option configures a Handler.
type Option func(*Handler)

// WithPageSize sets the remote page size.
func WithPageSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.pageSize = n
		}
	}
}

// WithLocation sets the timezone day separators are computed in.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) { h.loc = loc }
}

// WithClock overrides the wall clock; tests pin "today" with it.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithLogger sets the handler's logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a reconciler over a remote source and the local
// transaction store.
func NewHandler(remote RemoteSource, store storage.TransactionStore, opts ...Option) *Handler {
	h := &Handler{
		remote:   remote,
		store:    store,
		logger:   log.Default(),
		pageSize: DefaultPageSize,
		loc:      time.Local,
		now:      time.Now,
		states:   make(chan domain.HistoryState, 32),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// States streams state snapshots. Slow consumers lose the oldest
// snapshot, never the newest.
func (h *Handler) States() <-chan domain.HistoryState { return h.states }

// Close stops the state stream. No method may be called afterwards.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.states)
	}
}

// SetAccount switches the handler to another account. The cache is
// cleared and any in-flight fetch for the previous account is dropped
// on arrival.
func (h *Handler) SetAccount(account string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if account == h.account {
		return
	}
	h.account = account
	h.gen++
	h.records = nil
	h.page = 0
	h.endReached = false
}

// Refresh reloads the first page and reconciles it with local pending
// records. It emits a loading snapshot first; pull marks the snapshot
// as a pull-to-refresh so the UI keeps the list visible. On failure the
// last good records are kept and the error is returned.
func (h *Handler) Refresh(ctx context.Context, pull bool) error {
	h.mu.Lock()
	if h.loading || h.closed {
		h.mu.Unlock()
		return nil
	}
	h.loading = true
	gen, account := h.gen, h.account
	h.mu.Unlock()
	defer h.clearLoading()

	h.emit(domain.HistoryState{Kind: domain.HistoryLoading, PullToRefresh: pull})

	page, err := h.remote.FetchPage(ctx, account, 1, h.pageSize)

	h.mu.Lock()
	if h.gen != gen || h.closed {
		h.mu.Unlock()
		return nil
	}
	if err != nil {
		state := h.snapshotLocked(true)
		h.mu.Unlock()
		h.emit(state)
		return fmt.Errorf("refresh history: %w", err)
	}

	h.records = h.reconcile(ctx, account, page.Records)
	h.page = 1
	h.endReached = page.EndReached
	state := h.snapshotLocked(false)
	h.mu.Unlock()

	h.emit(state)
	return nil
}

// LoadMore fetches the next page. It is a no-op while another load is
// running, after the end was reached, or before the first Refresh. A
// failed load keeps the current records and flags the snapshot.
func (h *Handler) LoadMore(ctx context.Context) error {
	h.mu.Lock()
	if h.loading || h.endReached || h.page == 0 || h.closed {
		h.mu.Unlock()
		return nil
	}
	h.loading = true
	gen, account, next := h.gen, h.account, h.page+1
	h.mu.Unlock()
	defer h.clearLoading()

	page, err := h.remote.FetchPage(ctx, account, next, h.pageSize)

	h.mu.Lock()
	if h.gen != gen || h.closed {
		h.mu.Unlock()
		return nil
	}
	if err != nil {
		state := h.snapshotLocked(true)
		h.mu.Unlock()
		h.emit(state)
		return fmt.Errorf("load more history: %w", err)
	}

	h.records = appendNew(h.records, page.Records)
	h.page = next
	h.endReached = page.EndReached
	state := h.snapshotLocked(false)
	h.mu.Unlock()

	h.emit(state)
	return nil
}

// HasNewTransaction probes the remote head with a single-record page
// and reports whether it differs from the newest record known locally.
func (h *Handler) HasNewTransaction(ctx context.Context) (bool, error) {
	h.mu.Lock()
	account := h.account
	var newest string
	if len(h.records) > 0 {
		newest = h.records[0].Hash
	}
	h.mu.Unlock()

	page, err := h.remote.FetchPage(ctx, account, 1, 1)
	if err != nil {
		return false, fmt.Errorf("probe history head: %w", err)
	}
	if len(page.Records) == 0 {
		return false, nil
	}
	return page.Records[0].Hash != newest, nil
}

// AddPending records a just-submitted transaction and surfaces it
// immediately, ahead of the next remote reconciliation.
func (h *Handler) AddPending(ctx context.Context, rec *domain.TransactionRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	if err := h.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("store pending transaction: %w", err)
	}

	h.mu.Lock()
	if h.closed || rec.Account != h.account {
		h.mu.Unlock()
		return nil
	}
	h.records = appendNew(h.records, []*domain.TransactionRecord{rec})
	state := h.snapshotLocked(false)
	h.mu.Unlock()

	h.emit(state)
	return nil
}

// RefreshTransaction re-fetches one transaction from the indexer and
// folds its current status back into the store and the visible stream.
// A hash the indexer does not know yet changes nothing.
func (h *Handler) RefreshTransaction(ctx context.Context, hash string) error {
	indexed, err := h.remote.FetchTransaction(ctx, hash)
	if err != nil {
		return fmt.Errorf("refresh transaction %s: %w", hash, err)
	}
	if indexed == nil {
		return nil
	}
	if err := h.store.Upsert(ctx, indexed); err != nil {
		h.logger.Printf("[history] persist refreshed %s: %v", hash, err)
	}

	h.mu.Lock()
	if h.closed || indexed.Account != h.account {
		h.mu.Unlock()
		return nil
	}
	replaced := false
	for i, r := range h.records {
		if r.Hash == hash {
			h.records[i] = indexed
			replaced = true
			break
		}
	}
	if !replaced {
		h.mu.Unlock()
		return nil
	}
	state := h.snapshotLocked(false)
	h.mu.Unlock()

	h.emit(state)
	return nil
}

func (h *Handler) clearLoading() {
	h.mu.Lock()
	h.loading = false
	h.mu.Unlock()
}

// reconcile merges a fresh remote page with locally stored records.
// The remote version of a transaction always wins; local records stay
// only while still pending and not yet indexed.
func (h *Handler) reconcile(ctx context.Context, account string, remote []*domain.TransactionRecord) []*domain.TransactionRecord {
	seen := make(map[string]*domain.TransactionRecord, len(remote))
	for _, r := range remote {
		seen[r.Hash] = r
	}

	local, err := h.store.GetByAccount(ctx, account)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logger.Printf("[history] local records unavailable: %v", err)
		local = nil
	}

	merged := make([]*domain.TransactionRecord, len(remote))
	copy(merged, remote)
	for _, l := range local {
		if indexed, ok := seen[l.Hash]; ok {
			if indexed.Status != l.Status {
				if err := h.store.Upsert(ctx, indexed); err != nil {
					h.logger.Printf("[history] persist reconciled %s: %v", l.Hash, err)
				}
			}
			continue
		}
		if l.Status == domain.StatusPending {
			merged = append(merged, l)
		}
	}

	sortNewestFirst(merged)
	return merged
}

// appendNew appends records whose hash is not present yet and restores
// newest-first order.
func appendNew(existing, more []*domain.TransactionRecord) []*domain.TransactionRecord {
	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.Hash] = struct{}{}
	}
	out := existing
	for _, r := range more {
		if _, ok := seen[r.Hash]; ok {
			continue
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(records []*domain.TransactionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp > records[j].Timestamp
		}
		return records[i].Hash > records[j].Hash
	})
}

// snapshotLocked builds the current Ready state. Callers hold h.mu.
func (h *Handler) snapshotLocked(errorLoadingNew bool) domain.HistoryState {
	return domain.HistoryState{
		Kind:               domain.HistoryReady,
		Events:             h.buildEventsLocked(),
		EndReached:         h.endReached,
		HasErrorLoadingNew: errorLoadingNew,
	}
}

// buildEventsLocked interleaves day separators into the record list.
func (h *Handler) buildEventsLocked() []domain.HistoryEvent {
	now := h.now().In(h.loc)
	var events []domain.HistoryEvent
	var lastLabel string
	for _, r := range h.records {
		label := dayLabel(time.UnixMilli(r.Timestamp).In(h.loc), now)
		if label != lastLabel {
			events = append(events, domain.DaySeparator{Label: label})
			lastLabel = label
		}
		events = append(events, domain.RecordEvent{Record: r})
	}
	return events
}

func dayLabel(t, now time.Time) string {
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return "Today"
	}
	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	if ty == yy && tm == ym && td == yd {
		return "Yesterday"
	}
	return t.Format("2 January 2006")
}

// emit publishes a snapshot, evicting the oldest one if the consumer
// lags.
func (h *Handler) emit(s domain.HistoryState) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	select {
	case h.states <- s:
	default:
		select {
		case <-h.states:
		default:
		}
		select {
		case h.states <- s:
		default:
		}
	}
	h.mu.Unlock()
}
