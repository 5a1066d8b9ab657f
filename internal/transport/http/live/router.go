package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"supertrader/internal/logger"
	"supertrader/internal/store/gormstore"
	"supertrader/internal/trader"

	"github.com/gin-gonic/gin"
)

// TradingService is the slice of *trader.Trader the HTTP surface drives.
type TradingService interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	QuoteBalance(ctx context.Context) (trader.Balance, error)
	Holdings(ctx context.Context, symbol string) ([]trader.Position, error)
	Execute(ctx context.Context, symbol string, qty float64, price trader.Price) (*trader.OrderReport, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CloseAll(ctx context.Context) error
}

// OrderLog lists journaled orders.
type OrderLog interface {
	ListOrders(ctx context.Context, f gormstore.OrderFilter) ([]gormstore.OrderRecord, error)
}

// Router exposes price, balance, position and order endpoints. Every call
// into the trader holds mu so the broker session is never shared.
type Router struct {
	Trading TradingService
	Orders  OrderLog

	mu sync.Mutex
}

// OrderRequest is the body of POST /orders. Quantity is signed; Price is
// "market" or a positive number.
type OrderRequest struct {
	Symbol   string  `json:"symbol" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
	Price    string  `json:"price"`
}

func NewRouter(trading TradingService, orders OrderLog) *Router {
	return &Router{Trading: trading, Orders: orders}
}

// Register mounts the routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/price", r.handlePrice)
	group.GET("/balance", r.handleBalance)
	group.GET("/positions", r.handlePositions)
	group.GET("/orders", r.handleListOrders)
	group.POST("/orders", r.handleExecute)
	group.DELETE("/orders/:id", r.handleCancel)
	group.POST("/liquidate", r.handleLiquidate)
}

func (r *Router) handlePrice(c *gin.Context) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	r.mu.Lock()
	price, err := r.Trading.CurrentPrice(c.Request.Context(), symbol)
	r.mu.Unlock()
	if err != nil {
		r.fail(c, "price", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price})
}

func (r *Router) handleBalance(c *gin.Context) {
	r.mu.Lock()
	bal, err := r.Trading.QuoteBalance(c.Request.Context())
	r.mu.Unlock()
	if err != nil {
		r.fail(c, "balance", err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (r *Router) handlePositions(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", trader.AllSymbols)
	r.mu.Lock()
	positions, err := r.Trading.Holdings(c.Request.Context(), symbol)
	r.mu.Unlock()
	if err != nil {
		r.fail(c, "positions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (r *Router) handleListOrders(c *gin.Context) {
	if r.Orders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order journal is disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	orders, err := r.Orders.ListOrders(c.Request.Context(), gormstore.OrderFilter{
		Broker: c.Query("broker"),
		Symbol: c.Query("symbol"),
		Limit:  limit,
	})
	if err != nil {
		logger.Errorf("[api] list orders failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (r *Router) handleExecute(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Errorf("[api] order bind failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := trader.ParsePrice(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.mu.Lock()
	report, err := r.Trading.Execute(c.Request.Context(), req.Symbol, req.Quantity, price)
	r.mu.Unlock()
	if err != nil {
		if report != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "report": report})
			return
		}
		r.fail(c, "order", err)
		return
	}
	logger.Infof("[api] order executed ip=%s %s", c.ClientIP(), report)
	c.JSON(http.StatusOK, report)
}

func (r *Router) handleCancel(c *gin.Context) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	orderID := c.Param("id")
	r.mu.Lock()
	err := r.Trading.CancelOrder(c.Request.Context(), symbol, orderID)
	r.mu.Unlock()
	if err != nil {
		r.fail(c, "cancel", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "order_id": orderID})
}

func (r *Router) handleLiquidate(c *gin.Context) {
	r.mu.Lock()
	err := r.Trading.CloseAll(c.Request.Context())
	r.mu.Unlock()
	if err != nil {
		r.fail(c, "liquidate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) fail(c *gin.Context, op string, err error) {
	logger.Errorf("[api] %s failed ip=%s err=%v", op, c.ClientIP(), err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// statusFor maps trader errors onto HTTP status codes.
func statusFor(err error) int {
	var rl *trader.RateLimitedError
	switch {
	case errors.Is(err, trader.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, trader.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, trader.ErrPersistentRateLimit), errors.As(err, &rl):
		return http.StatusTooManyRequests
	case errors.Is(err, trader.ErrMarketClosed), errors.Is(err, trader.ErrSystemUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
