package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradefeed/internal/exchange/api"
	"tradefeed/internal/exchange/fanout"
	"tradefeed/internal/exchange/model"
	"tradefeed/internal/exchange/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestRouter() (*gin.Engine, *store.TradeStore, *fanout.Hub) {
	st := store.New(0)
	hub := fanout.NewHub(16, nil)
	h := api.NewHandler(st, hub, zap.NewNop())
	return h.Router(), st, hub
}

func postTrade(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/stocks/trades", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// go test -v --run TestCreateTrade
func TestCreateTrade(t *testing.T) {
	router, _, _ := newTestRouter()

	w := postTrade(t, router, `{"tickerSymbol":"TCS","price":2500,"quantity":10,"brokerId":"BRK-1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var accepted model.Trade
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if accepted.ID == 0 {
		t.Error("expected an assigned trade id")
	}
	if accepted.Timestamp.IsZero() {
		t.Error("expected an assigned timestamp")
	}
	if !accepted.Price.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("price %s, want 2500", accepted.Price)
	}
}

// go test -v --run TestCreateTradeInvalid
func TestCreateTradeInvalid(t *testing.T) {
	router, st, _ := newTestRouter()

	w := postTrade(t, router, `{"tickerSymbol":"TCS","price":-1,"quantity":10,"brokerId":"BRK-1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("price")) {
		t.Errorf("expected a price field error in body: %s", w.Body.String())
	}

	// The rejection must not have touched any aggregate.
	if _, err := st.AveragePrice("TCS"); !errors.Is(err, store.ErrSymbolNotFound) {
		t.Errorf("rejected trade mutated the store: %v", err)
	}
}

// go test -v --run TestCreateTradeMalformedBody
func TestCreateTradeMalformedBody(t *testing.T) {
	router, _, _ := newTestRouter()

	w := postTrade(t, router, `{"tickerSymbol":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// go test -v --run TestCreateTradePublishes
func TestCreateTradePublishes(t *testing.T) {
	router, _, hub := newTestRouter()

	before := hub.Subscribe()
	defer before.Close()

	w := postTrade(t, router, `{"tickerSymbol":"TCS","price":2500,"quantity":10,"brokerId":"BRK-1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	var accepted model.Trade
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("bad response body: %v", err)
	}

	select {
	case got := <-before.Trades():
		if got.ID != accepted.ID {
			t.Errorf("notified trade id %d, want %d", got.ID, accepted.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never notified")
	}

	// A subscriber registered after the publish sees nothing.
	after := hub.Subscribe()
	defer after.Close()
	select {
	case got := <-after.Trades():
		t.Fatalf("late subscriber received trade %d", got.ID)
	default:
	}
}

// go test -v --run TestGetStockPrice
func TestGetStockPrice(t *testing.T) {
	router, _, _ := newTestRouter()

	postTrade(t, router, `{"tickerSymbol":"TCS","price":2000,"quantity":5,"brokerId":"BRK-1"}`)
	postTrade(t, router, `{"tickerSymbol":"TCS","price":3000,"quantity":5,"brokerId":"BRK-2"}`)

	req := httptest.NewRequest(http.MethodGet, "/stocks/price/TCS", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var sp model.StockPrice
	if err := json.Unmarshal(w.Body.Bytes(), &sp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if sp.Symbol != "TCS" {
		t.Errorf("symbol %q, want TCS", sp.Symbol)
	}
	if !sp.AveragePrice.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("average %s, want 2500", sp.AveragePrice)
	}
}

// go test -v --run TestGetStockPriceNotFound
func TestGetStockPriceNotFound(t *testing.T) {
	router, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/stocks/price/GHOST", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// go test -v --run TestGetStockPricesFiltered
func TestGetStockPricesFiltered(t *testing.T) {
	router, _, _ := newTestRouter()

	postTrade(t, router, `{"tickerSymbol":"TCS","price":2500,"quantity":1,"brokerId":"BRK-1"}`)
	postTrade(t, router, `{"tickerSymbol":"SBI","price":560,"quantity":1,"brokerId":"BRK-1"}`)
	postTrade(t, router, `{"tickerSymbol":"IRB","price":120,"quantity":1,"brokerId":"BRK-1"}`)

	req := httptest.NewRequest(http.MethodGet, "/stocks?tickers=TCS,SBI", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var prices []model.StockPrice
	if err := json.Unmarshal(w.Body.Bytes(), &prices); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 entries, got %d: %s", len(prices), w.Body.String())
	}
	for _, sp := range prices {
		if sp.Symbol == "IRB" {
			t.Errorf("unrequested symbol IRB in result")
		}
	}
}

// go test -v --run TestGetStockPricesAll
func TestGetStockPricesAll(t *testing.T) {
	router, _, _ := newTestRouter()

	for _, symbol := range []string{"TCS", "SBI", "IRB"} {
		postTrade(t, router, `{"tickerSymbol":"`+symbol+`","price":100,"quantity":1,"brokerId":"BRK-1"}`)
	}

	req := httptest.NewRequest(http.MethodGet, "/stocks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var prices []model.StockPrice
	if err := json.Unmarshal(w.Body.Bytes(), &prices); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(prices) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(prices))
	}
}

// go test -v --run TestGetTradesBySymbol
func TestGetTradesBySymbol(t *testing.T) {
	router, _, _ := newTestRouter()

	postTrade(t, router, `{"tickerSymbol":"TCS","price":2500,"quantity":1,"brokerId":"BRK-1"}`)
	postTrade(t, router, `{"tickerSymbol":"TCS","price":2600,"quantity":2,"brokerId":"BRK-2"}`)

	req := httptest.NewRequest(http.MethodGet, "/stocks/trades/TCS", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var trades []model.Trade
	if err := json.Unmarshal(w.Body.Bytes(), &trades); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}

	// Unknown symbols return an empty list, not 404 and not null.
	req = httptest.NewRequest(http.MethodGet, "/stocks/trades/GHOST", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("expected empty list for unknown symbol, got %d %s", w.Code, w.Body.String())
	}
}
