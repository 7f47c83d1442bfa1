package router

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"sora-wallet-engine/internal/domain"
)

// NetworkFeeFunc estimates the network fee for a swap extrinsic.
type NetworkFeeFunc func(ctx context.Context) (*big.Int, error)

// QuoteResult pairs a computed quote with the intent that produced it.
// Quote is nil when no market had liquidity.
type QuoteResult struct {
	Intent *domain.SwapIntent
	Quote  *domain.SwapQuote
	Err    error
}

// QuoteService recomputes quotes for rapid successive intents.
// Submissions are debounced, and any computation outlived by a newer
// submission is discarded without emitting: last request wins, not first
// response.
type QuoteService struct {
	router     *Router
	networkFee NetworkFeeFunc
	debounce   time.Duration

	gen     atomic.Uint64
	results chan QuoteResult

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// DefaultDebounce is the recommended minimum interval between quote
// recomputations triggered by user input.
const DefaultDebounce = 300 * time.Millisecond

// NewQuoteService wraps a router with debounced recomputation. debounce
// <= 0 falls back to DefaultDebounce.
func NewQuoteService(r *Router, networkFee NetworkFeeFunc, debounce time.Duration) *QuoteService {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &QuoteService{
		router:     r,
		networkFee: networkFee,
		debounce:   debounce,
		results:    make(chan QuoteResult, 1),
	}
}

// Results emits at most the latest quote per settled submission. The
// channel is closed by Close.
func (s *QuoteService) Results() <-chan QuoteResult {
	return s.results
}

// Submit schedules a quote computation for the intent, superseding any
// submission still debouncing or computing.
func (s *QuoteService) Submit(ctx context.Context, intent *domain.SwapIntent) {
	myGen := s.gen.Add(1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(s.debounce)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if s.gen.Load() != myGen {
			return // superseded while debouncing
		}

		res := s.compute(ctx, intent)
		if s.gen.Load() != myGen {
			return // superseded while computing; result is stale
		}
		s.emit(res)
	}()
}

func (s *QuoteService) compute(ctx context.Context, intent *domain.SwapIntent) QuoteResult {
	fee, err := s.networkFee(ctx)
	if err != nil {
		return QuoteResult{Intent: intent, Err: err}
	}
	quote, err := s.router.RouteSwap(ctx, intent, fee)
	return QuoteResult{Intent: intent, Quote: quote, Err: err}
}

// emit replaces a not-yet-consumed older result instead of blocking.
func (s *QuoteService) emit(res QuoteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.results <- res:
			return
		default:
			select {
			case <-s.results:
			default:
			}
		}
	}
}

// Close discards pending work and closes the results channel. Submit
// calls after Close are no-ops.
func (s *QuoteService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen.Add(1) // invalidate in-flight computations
	s.mu.Unlock()

	s.wg.Wait()
	close(s.results)
}
