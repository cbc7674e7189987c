package store

import (
	"sync"
	"sync/atomic"
	"time"

	"tradefeed/internal/exchange/model"

	"github.com/shopspring/decimal"
)

const (
	maxSymbolLen = 10
	maxBrokerLen = 50
)

// TradeStore holds the accepted trade log and the derived per-symbol
// running aggregates (count, price sum). All mutation goes through
// Submit.
//
// Locking is two-level: globalMu guards the symbol map only, each symbol
// entry carries its own mutex. Submissions for different symbols never
// contend; submissions for the same symbol serialize, so a reader can
// never observe a price sum without its matching trade count.
type TradeStore struct {
	globalMu sync.RWMutex
	symbols  map[string]*symbolAggregate

	nextID   atomic.Int64
	accepted atomic.Int64

	maxTrades int64
}

type symbolAggregate struct {
	mu       sync.Mutex
	trades   []model.Trade
	count    int64
	priceSum decimal.Decimal
}

// New creates an empty store. maxTrades bounds the total number of
// accepted trades across all symbols; 0 means unbounded.
func New(maxTrades int64) *TradeStore {
	return &TradeStore{
		symbols:   make(map[string]*symbolAggregate),
		maxTrades: maxTrades,
	}
}

// Submit validates t, assigns its id (and timestamp if unset), appends
// it to the symbol's log and updates the aggregate. Either the trade is
// fully recorded or the store is untouched; on rejection the returned
// error is a *ValidationError or *StorageError.
func (s *TradeStore) Submit(t model.Trade) (model.Trade, error) {
	if err := validate(t); err != nil {
		return model.Trade{}, err
	}

	// Reserve capacity before touching any aggregate so a full store
	// fails without a partial update.
	if n := s.accepted.Add(1); s.maxTrades > 0 && n > s.maxTrades {
		s.accepted.Add(-1)
		return model.Trade{}, &StorageError{Op: "submit", Err: errCapacityExhausted}
	}

	agg := s.aggregateFor(t.Symbol)

	agg.mu.Lock()
	t.ID = s.nextID.Add(1)
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	agg.trades = append(agg.trades, t)
	agg.count++
	agg.priceSum = agg.priceSum.Add(t.Price)
	agg.mu.Unlock()

	return t, nil
}

// aggregateFor returns the symbol's aggregate, creating it on first use.
func (s *TradeStore) aggregateFor(symbol string) *symbolAggregate {
	// Fast path: symbol already known, read lock only.
	s.globalMu.RLock()
	agg, ok := s.symbols[symbol]
	s.globalMu.RUnlock()
	if ok {
		return agg
	}

	s.globalMu.Lock()
	if agg, ok = s.symbols[symbol]; !ok {
		agg = &symbolAggregate{priceSum: decimal.Zero}
		s.symbols[symbol] = agg
	}
	s.globalMu.Unlock()
	return agg
}

// AveragePrice returns the running average price for symbol, or
// ErrSymbolNotFound when no trades have been accepted for it.
func (s *TradeStore) AveragePrice(symbol string) (decimal.Decimal, error) {
	s.globalMu.RLock()
	agg, ok := s.symbols[symbol]
	s.globalMu.RUnlock()
	if !ok {
		return decimal.Decimal{}, ErrSymbolNotFound
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()
	// The entry exists before the first append completes; treat the
	// empty window as not found.
	if agg.count == 0 {
		return decimal.Decimal{}, ErrSymbolNotFound
	}
	return agg.priceSum.Div(decimal.NewFromInt(agg.count)), nil
}

// AllAveragePrices returns one entry per symbol with at least one trade.
// Order is map traversal order and not guaranteed.
func (s *TradeStore) AllAveragePrices() []model.StockPrice {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	prices := make([]model.StockPrice, 0, len(s.symbols))
	for symbol, agg := range s.symbols {
		agg.mu.Lock()
		count, sum := agg.count, agg.priceSum
		agg.mu.Unlock()
		if count == 0 {
			continue
		}
		prices = append(prices, model.StockPrice{
			Symbol:       symbol,
			AveragePrice: sum.Div(decimal.NewFromInt(count)),
		})
	}
	return prices
}

// AveragePrices returns averages for the requested symbols only.
// Symbols with no trades are silently omitted; duplicate requests
// collapse to one entry.
func (s *TradeStore) AveragePrices(symbols []string) []model.StockPrice {
	seen := make(map[string]struct{}, len(symbols))
	prices := make([]model.StockPrice, 0, len(symbols))
	for _, symbol := range symbols {
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}

		avg, err := s.AveragePrice(symbol)
		if err != nil {
			continue
		}
		prices = append(prices, model.StockPrice{Symbol: symbol, AveragePrice: avg})
	}
	return prices
}

// TradesBySymbol returns a copy of the accepted trade log for symbol,
// in acceptance order. Nil when the symbol has no trades.
func (s *TradeStore) TradesBySymbol(symbol string) []model.Trade {
	s.globalMu.RLock()
	agg, ok := s.symbols[symbol]
	s.globalMu.RUnlock()
	if !ok {
		return nil
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()
	if len(agg.trades) == 0 {
		return nil
	}
	cp := make([]model.Trade, len(agg.trades))
	copy(cp, agg.trades)
	return cp
}

// CountAll returns the total number of accepted trades across all symbols.
func (s *TradeStore) CountAll() int64 {
	return s.accepted.Load()
}

// SymbolCount returns the number of symbols with at least one trade.
func (s *TradeStore) SymbolCount() int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()
	return len(s.symbols)
}

func validate(t model.Trade) error {
	var fields []FieldError

	if t.Symbol == "" {
		fields = append(fields, FieldError{Field: "tickerSymbol", Message: "must not be empty"})
	} else if len(t.Symbol) > maxSymbolLen {
		fields = append(fields, FieldError{Field: "tickerSymbol", Message: "must be at most 10 characters"})
	}

	if t.BrokerID == "" {
		fields = append(fields, FieldError{Field: "brokerId", Message: "must not be empty"})
	} else if len(t.BrokerID) > maxBrokerLen {
		fields = append(fields, FieldError{Field: "brokerId", Message: "must be at most 50 characters"})
	}

	if t.Price.IsNegative() {
		fields = append(fields, FieldError{Field: "price", Message: "must be zero or a positive value"})
	}

	if t.Quantity.IsNegative() {
		fields = append(fields, FieldError{Field: "quantity", Message: "must be zero or a positive value"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
