package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pixellar-backend/internal/features/wallet/models"
	"pixellar-backend/internal/features/wallet/service"
)

type WalletHandler struct {
	service service.WalletService
}

func NewWalletHandler(service service.WalletService) *WalletHandler {
	return &WalletHandler{
		service: service,
	}
}

func (h *WalletHandler) RegisterRoutes(router *gin.RouterGroup) {
	wallet := router.Group("/wallet")
	{
		wallet.GET("", h.getState)
		wallet.POST("/connect", h.connect)
		wallet.POST("/disconnect", h.disconnect)
		wallet.GET("/transactions", h.listTransactions)
		wallet.POST("/transactions", h.executeTransaction)
	}
}

// @Summary Get wallet state
// @Description Get the current session, balance and ledger snapshot
// @Tags wallet
// @Produce json
// @Success 200 {object} models.Snapshot "Wallet snapshot"
// @Router /wallet [get]
func (h *WalletHandler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Snapshot())
}

// @Summary Connect wallet
// @Description Start the authentication handshake. When authentication completes before the timeout the session arrives asynchronously (202); on timeout the fallback policy may synthesize a session (200).
// @Tags wallet
// @Produce json
// @Success 200 {object} models.Snapshot "Wallet snapshot with an established session"
// @Success 202 {object} models.Snapshot "Handshake accepted, session pending"
// @Failure 502 {object} models.ErrorResponse "Authentication failed"
// @Router /wallet/connect [post]
func (h *WalletHandler) connect(c *gin.Context) {
	if err := h.service.Connect(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}

	snapshot := h.service.Snapshot()
	if !snapshot.Connected {
		c.JSON(http.StatusAccepted, snapshot)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// @Summary Disconnect wallet
// @Description Clear the session and balance and remove the persisted session. Idempotent.
// @Tags wallet
// @Produce json
// @Success 200 {object} models.Snapshot "Wallet snapshot after disconnect"
// @Router /wallet/disconnect [post]
func (h *WalletHandler) disconnect(c *gin.Context) {
	if err := h.service.Disconnect(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.service.Snapshot())
}

// @Summary List transactions
// @Description List the simulated transaction ledger, newest first
// @Tags wallet
// @Produce json
// @Success 200 {array} models.Transaction "Ledger entries"
// @Router /wallet/transactions [get]
func (h *WalletHandler) listTransactions(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Snapshot().Transactions)
}

// @Summary Execute transaction
// @Description Execute a simulated purchase, sale or transfer against the current session
// @Tags wallet
// @Accept json
// @Produce json
// @Param transaction body models.ExecuteTransactionRequest true "Transaction to execute"
// @Success 201 {object} models.Transaction "Executed transaction"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Wallet not connected"
// @Failure 402 {object} models.ErrorResponse "Insufficient balance"
// @Router /wallet/transactions [post]
func (h *WalletHandler) executeTransaction(c *gin.Context) {
	var req models.ExecuteTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.service.ExecuteTransaction(c.Request.Context(), models.TransactionKind(req.Kind), req.Amount, req.SubjectID, req.SubjectLabel)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}
