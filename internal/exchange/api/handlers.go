package api

import (
	"errors"
	"net/http"
	"strings"

	"tradefeed/internal/exchange/fanout"
	"tradefeed/internal/exchange/model"
	"tradefeed/internal/exchange/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes the trade store over HTTP.
type Handler struct {
	store  *store.TradeStore
	hub    *fanout.Hub
	logger *zap.Logger
}

func NewHandler(st *store.TradeStore, hub *fanout.Hub, logger *zap.Logger) *Handler {
	return &Handler{store: st, hub: hub, logger: logger}
}

// Router builds the gin engine with all stock routes attached.
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	stocks := r.Group("/stocks")
	stocks.POST("/trades", h.CreateTrade)
	stocks.GET("/trades/:symbol", h.GetTrades)
	stocks.GET("/price/:symbol", h.GetStockPrice)
	stocks.GET("", h.GetStockPrices)

	return r
}

// CreateTrade handles POST /stocks/trades.
func (h *Handler) CreateTrade(c *gin.Context) {
	var req model.Trade
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed trade payload"})
		return
	}

	accepted, err := h.store.Submit(req)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			h.logger.Warn("invalid trade rejected",
				zap.String("symbol", req.Symbol),
				zap.String("broker", req.BrokerID))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade", "fields": verr.Fields})
			return
		}
		h.logger.Error("trade submission failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	// Broadcast strictly after the store mutation committed. Delivery
	// problems stay inside the hub and never affect the response.
	h.hub.Publish(accepted)

	h.logger.Info("trade accepted",
		zap.Int64("trade_id", accepted.ID),
		zap.String("symbol", accepted.Symbol),
		zap.String("broker", accepted.BrokerID))
	c.JSON(http.StatusCreated, accepted)
}

// GetStockPrice handles GET /stocks/price/:symbol.
func (h *Handler) GetStockPrice(c *gin.Context) {
	symbol := c.Param("symbol")

	avg, err := h.store.AveragePrice(symbol)
	if err != nil {
		if errors.Is(err, store.ErrSymbolNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stock not found"})
			return
		}
		h.logger.Error("price query failed", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, model.StockPrice{Symbol: symbol, AveragePrice: avg})
}

// GetStockPrices handles GET /stocks with an optional comma-delimited
// tickers filter, e.g. /stocks?tickers=TCS,SBI.
func (h *Handler) GetStockPrices(c *gin.Context) {
	tickers := c.Query("tickers")
	if tickers == "" {
		c.JSON(http.StatusOK, h.store.AllAveragePrices())
		return
	}

	symbols := make([]string, 0, 4)
	for _, s := range strings.Split(tickers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	c.JSON(http.StatusOK, h.store.AveragePrices(symbols))
}

// GetTrades handles GET /stocks/trades/:symbol.
func (h *Handler) GetTrades(c *gin.Context) {
	trades := h.store.TradesBySymbol(c.Param("symbol"))
	if trades == nil {
		// Empty list rather than null for unknown symbols.
		trades = []model.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}
