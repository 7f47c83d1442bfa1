package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/storage/memory"
)

// fakeRemote serves scripted pages and can stall to simulate a slow
// indexer.
type fakeRemote struct {
	mu     sync.Mutex
	pages  map[int]*domain.HistoryPage
	txs    map[string]*domain.TransactionRecord
	err    error
	calls  int
	probes int
	block  chan struct{}
}

func (f *fakeRemote) FetchPage(ctx context.Context, _ string, page, pageSize int) (*domain.HistoryPage, error) {
	f.mu.Lock()
	if pageSize == 1 {
		f.probes++
	} else {
		f.calls++
	}
	block := f.block
	err := f.err
	p := f.pages[page]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &domain.HistoryPage{EndReached: true}, nil
	}
	return p, nil
}

func (f *fakeRemote) FetchTransaction(_ context.Context, hash string) (*domain.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.txs[hash], nil
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func rec(hash string, ts time.Time, status domain.TransactionStatus) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		Hash:      hash,
		Account:   "cnAlice",
		Kind:      domain.KindSwap,
		Status:    status,
		Timestamp: ts.UnixMilli(),
		AssetID:   domain.NativeAssetID,
	}
}

func testHandler(t *testing.T, remote *fakeRemote) (*Handler, *memory.TransactionStore) {
	t.Helper()
	store := memory.NewTransactionStore()
	h := NewHandler(remote, store,
		WithPageSize(10),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }),
	)
	t.Cleanup(h.Close)
	h.SetAccount("cnAlice")
	return h, store
}

func nextState(t *testing.T, h *Handler) domain.HistoryState {
	t.Helper()
	select {
	case s := <-h.States():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no state emitted")
		return domain.HistoryState{}
	}
}

func TestHandler_RefreshEmitsLoadingThenReady(t *testing.T) {
	remote := &fakeRemote{pages: map[int]*domain.HistoryPage{
		1: {
			Records: []*domain.TransactionRecord{
				rec("0x2", fixedNow.Add(-1*time.Hour), domain.StatusCommitted),
				rec("0x1", fixedNow.Add(-2*time.Hour), domain.StatusCommitted),
				rec("0x0", fixedNow.Add(-24*time.Hour), domain.StatusCommitted),
			},
			EndReached: true,
		},
	}}
	h, _ := testHandler(t, remote)

	if err := h.Refresh(context.Background(), false); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	loading := nextState(t, h)
	if loading.Kind != domain.HistoryLoading || loading.PullToRefresh {
		t.Errorf("first state = %+v, want plain loading", loading)
	}

	ready := nextState(t, h)
	if ready.Kind != domain.HistoryReady || !ready.EndReached {
		t.Fatalf("second state = %+v, want ready at end", ready)
	}

	// Today separator, two records, Yesterday separator, one record.
	labels := []string{}
	hashes := []string{}
	for _, ev := range ready.Events {
		switch e := ev.(type) {
		case domain.DaySeparator:
			labels = append(labels, e.Label)
		case domain.RecordEvent:
			hashes = append(hashes, e.Record.Hash)
		}
	}
	if len(labels) != 2 || labels[0] != "Today" || labels[1] != "Yesterday" {
		t.Errorf("separators = %v", labels)
	}
	if len(hashes) != 3 || hashes[0] != "0x2" || hashes[2] != "0x0" {
		t.Errorf("record order = %v, want newest first", hashes)
	}
}

func TestHandler_RefreshMergesPending(t *testing.T) {
	remote := &fakeRemote{pages: map[int]*domain.HistoryPage{
		1: {
			Records: []*domain.TransactionRecord{
				rec("0xdone", fixedNow.Add(-1*time.Hour), domain.StatusCommitted),
			},
			EndReached: true,
		},
	}}
	h, store := testHandler(t, remote)
	ctx := context.Background()

	// Locally pending: one already indexed remotely, one not yet.
	store.Upsert(ctx, rec("0xdone", fixedNow.Add(-1*time.Hour), domain.StatusPending))
	store.Upsert(ctx, rec("0xwaiting", fixedNow.Add(-30*time.Minute), domain.StatusPending))

	if err := h.Refresh(ctx, false); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	nextState(t, h) // loading
	ready := nextState(t, h)

	var hashes []string
	var statuses []domain.TransactionStatus
	for _, ev := range ready.Events {
		if e, ok := ev.(domain.RecordEvent); ok {
			hashes = append(hashes, e.Record.Hash)
			statuses = append(statuses, e.Record.Status)
		}
	}
	if len(hashes) != 2 || hashes[0] != "0xwaiting" || hashes[1] != "0xdone" {
		t.Fatalf("merged hashes = %v", hashes)
	}
	if statuses[1] != domain.StatusCommitted {
		t.Errorf("indexed record status = %s, remote must win", statuses[1])
	}

	// The store copy was reconciled too.
	got, err := store.GetByHash(ctx, "0xdone")
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got.Status != domain.StatusCommitted {
		t.Errorf("stored status = %s, want COMMITTED", got.Status)
	}
}

func TestHandler_LoadMore(t *testing.T) {
	remote := &fakeRemote{pages: map[int]*domain.HistoryPage{
		1: {Records: []*domain.TransactionRecord{rec("0x3", fixedNow.Add(-1*time.Hour), domain.StatusCommitted)}},
		2: {Records: []*domain.TransactionRecord{rec("0x2", fixedNow.Add(-2*time.Hour), domain.StatusCommitted)}, EndReached: true},
	}}
	h, _ := testHandler(t, remote)
	ctx := context.Background()

	// LoadMore before the first Refresh is a no-op.
	if err := h.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if remote.calls != 0 {
		t.Fatalf("remote calls = %d before first refresh", remote.calls)
	}

	h.Refresh(ctx, false)
	nextState(t, h)
	nextState(t, h)

	if err := h.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	ready := nextState(t, h)
	if !ready.EndReached {
		t.Error("EndReached must carry over from the last page")
	}
	var hashes []string
	for _, ev := range ready.Events {
		if e, ok := ev.(domain.RecordEvent); ok {
			hashes = append(hashes, e.Record.Hash)
		}
	}
	if len(hashes) != 2 || hashes[0] != "0x3" || hashes[1] != "0x2" {
		t.Errorf("hashes after load more = %v", hashes)
	}

	// End reached: further loads never hit the remote.
	calls := remote.calls
	if err := h.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if remote.calls != calls {
		t.Errorf("remote calls = %d, want %d after end reached", remote.calls, calls)
	}
}

func TestHandler_LoadMoreErrorKeepsRecords(t *testing.T) {
	remote := &fakeRemote{pages: map[int]*domain.HistoryPage{
		1: {Records: []*domain.TransactionRecord{rec("0x1", fixedNow.Add(-1*time.Hour), domain.StatusCommitted)}},
	}}
	h, _ := testHandler(t, remote)
	ctx := context.Background()

	h.Refresh(ctx, false)
	nextState(t, h)
	nextState(t, h)

	remote.mu.Lock()
	remote.err = errors.New("indexer down")
	remote.mu.Unlock()

	if err := h.LoadMore(ctx); err == nil {
		t.Fatal("expected error from failed load")
	}
	ready := nextState(t, h)
	if !ready.HasErrorLoadingNew {
		t.Error("snapshot must flag the failed load")
	}
	var count int
	for _, ev := range ready.Events {
		if _, ok := ev.(domain.RecordEvent); ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("records = %d, want previous records retained", count)
	}
}

func TestHandler_PullToRefreshFlag(t *testing.T) {
	remote := &fakeRemote{pages: map[int]*domain.HistoryPage{1: {EndReached: true}}}
	h, _ := testHandler(t, remote)

	h.Refresh(context.Background(), true)
	loading := nextState(t, h)
	if loading.Kind != domain.HistoryLoading || !loading.PullToRefresh {
		t.Errorf("state = %+v, want pull-to-refresh loading", loading)
	}
}

func TestHandler_HasNewTransaction(t *testing.T) {
	remote := &fakeRemote{pages: map[int]*domain.HistoryPage{
		1: {Records: []*domain.TransactionRecord{rec("0x1", fixedNow.Add(-1*time.Hour), domain.StatusCommitted)}, EndReached: true},
	}}
	h, _ := testHandler(t, remote)
	ctx := context.Background()

	// Empty cache, remote has records.
	has, err := h.HasNewTransaction(ctx)
	if err != nil || !has {
		t.Errorf("HasNewTransaction = %v, %v; want true on empty cache", has, err)
	}

	h.Refresh(ctx, false)
	nextState(t, h)
	nextState(t, h)

	has, err = h.HasNewTransaction(ctx)
	if err != nil || has {
		t.Errorf("HasNewTransaction = %v, %v; want false when head matches", has, err)
	}

	remote.mu.Lock()
	remote.pages[1] = &domain.HistoryPage{
		Records:    []*domain.TransactionRecord{rec("0x2", fixedNow, domain.StatusCommitted)},
		EndReached: true,
	}
	remote.mu.Unlock()

	has, err = h.HasNewTransaction(ctx)
	if err != nil || !has {
		t.Errorf("HasNewTransaction = %v, %v; want true on new head", has, err)
	}
	if remote.probes != 3 {
		t.Errorf("probes = %d, want single-record pages for the check", remote.probes)
	}
}

func TestHandler_RefreshTransaction(t *testing.T) {
	remote := &fakeRemote{
		pages: map[int]*domain.HistoryPage{1: {EndReached: true}},
		txs:   map[string]*domain.TransactionRecord{},
	}
	h, store := testHandler(t, remote)
	ctx := context.Background()

	h.Refresh(ctx, false)
	nextState(t, h)
	nextState(t, h)

	pending := rec("0xp", fixedNow, domain.StatusPending)
	if err := h.AddPending(ctx, pending); err != nil {
		t.Fatalf("AddPending: %v", err)
	}
	nextState(t, h)

	// Not indexed yet: nothing changes, no state emitted.
	if err := h.RefreshTransaction(ctx, "0xp"); err != nil {
		t.Fatalf("RefreshTransaction: %v", err)
	}
	select {
	case s := <-h.States():
		t.Fatalf("unexpected state for unindexed hash: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}

	remote.mu.Lock()
	remote.txs["0xp"] = rec("0xp", fixedNow, domain.StatusCommitted)
	remote.mu.Unlock()

	if err := h.RefreshTransaction(ctx, "0xp"); err != nil {
		t.Fatalf("RefreshTransaction: %v", err)
	}
	ready := nextState(t, h)
	for _, ev := range ready.Events {
		if e, ok := ev.(domain.RecordEvent); ok && e.Record.Hash == "0xp" {
			if e.Record.Status != domain.StatusCommitted {
				t.Errorf("stream status = %s, want COMMITTED", e.Record.Status)
			}
		}
	}

	got, err := store.GetByHash(ctx, "0xp")
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got.Status != domain.StatusCommitted {
		t.Errorf("stored status = %s, want COMMITTED", got.Status)
	}
}

func TestHandler_AccountSwitchDropsStaleFetch(t *testing.T) {
	block := make(chan struct{})
	remote := &fakeRemote{
		pages: map[int]*domain.HistoryPage{
			1: {Records: []*domain.TransactionRecord{rec("0xold", fixedNow.Add(-1*time.Hour), domain.StatusCommitted)}, EndReached: true},
		},
		block: block,
	}
	h, _ := testHandler(t, remote)

	done := make(chan error, 1)
	go func() { done <- h.Refresh(context.Background(), false) }()

	nextState(t, h) // loading for the old account

	h.SetAccount("cnBob")
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// The stale page must not surface as a ready state.
	select {
	case s := <-h.States():
		t.Errorf("unexpected state after account switch: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandler_AddPending(t *testing.T) {
	remote := &fakeRemote{pages: map[int]*domain.HistoryPage{1: {EndReached: true}}}
	h, store := testHandler(t, remote)
	ctx := context.Background()

	h.Refresh(ctx, false)
	nextState(t, h)
	nextState(t, h)

	pending := rec("0xnew", fixedNow, domain.StatusPending)
	if err := h.AddPending(ctx, pending); err != nil {
		t.Fatalf("AddPending: %v", err)
	}

	ready := nextState(t, h)
	found := false
	for _, ev := range ready.Events {
		if e, ok := ev.(domain.RecordEvent); ok && e.Record.Hash == "0xnew" {
			found = true
		}
	}
	if !found {
		t.Error("pending record must surface immediately")
	}
	if _, err := store.GetByHash(ctx, "0xnew"); err != nil {
		t.Errorf("pending record must be persisted: %v", err)
	}

	// Records for other accounts persist but do not disturb the stream.
	other := rec("0xother", fixedNow, domain.StatusPending)
	other.Account = "cnBob"
	if err := h.AddPending(ctx, other); err != nil {
		t.Fatalf("AddPending: %v", err)
	}
	select {
	case s := <-h.States():
		t.Errorf("unexpected state for foreign account: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}
