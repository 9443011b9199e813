package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/setil-app/backend/internal/calculator"
	"github.com/setil-app/backend/internal/models"
)

type weightSpec struct {
	UserID string `json:"userId" binding:"required"`
	Weight int64  `json:"weight"`
}

// splitSpec asks the server to compute the beneficiary map instead of
// the client supplying it.
type splitSpec struct {
	Type         string       `json:"type" binding:"required,oneof=even ratio"`
	Amount       int64        `json:"amount"`
	Participants []string     `json:"participants"`
	Weights      []weightSpec `json:"weights"`
}

type transactionRequest struct {
	Title             string           `json:"title" binding:"required"`
	Category          string           `json:"category"`
	From              string           `json:"from"`
	To                map[string]int64 `json:"to"`
	Split             *splitSpec       `json:"split"`
	Date              *time.Time       `json:"date"`
	AffectedLeftUsers []string         `json:"affectedLeftUsers"`
}

// toTransaction turns a request into a transaction, computing the
// beneficiary map from a split spec when one is given. The payer
// defaults to the caller.
func (h *Handlers) toTransaction(c *gin.Context, req transactionRequest) (models.Transaction, bool) {
	user, ok := h.currentUser(c)
	if !ok {
		return models.Transaction{}, false
	}

	txn := models.Transaction{
		Title:    req.Title,
		Category: models.Category(req.Category),
		From:     req.From,
	}
	if txn.From == "" {
		txn.From = user.ID
	}
	if req.Date != nil {
		txn.Date = *req.Date
	}

	switch {
	case req.Split != nil:
		to, err := h.computeSplit(*req.Split)
		if err != nil {
			respondError(c, err)
			return models.Transaction{}, false
		}
		txn.To = to
	case len(req.To) > 0:
		txn.To = req.To
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either to or split is required"})
		return models.Transaction{}, false
	}

	return txn, true
}

func (h *Handlers) computeSplit(spec splitSpec) (map[string]int64, error) {
	if spec.Type == "even" {
		return calculator.SplitEven(spec.Amount, spec.Participants)
	}

	weights := make([]calculator.Weight, len(spec.Weights))
	for i, w := range spec.Weights {
		weights[i] = calculator.Weight{UserID: w.UserID, Weight: w.Weight}
	}
	return calculator.SplitByRatio(spec.Amount, weights)
}

func (h *Handlers) listTransactions(c *gin.Context) {
	if !h.requireMember(c, c.Param("id")) {
		return
	}

	txns, err := h.store.Transactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (h *Handlers) createTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, ok := h.toTransaction(c, req)
	if !ok {
		return
	}

	txnID, err := h.store.CreateTransaction(c.Request.Context(), c.Param("id"), txn, req.AffectedLeftUsers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": txnID})
}

func (h *Handlers) updateTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, ok := h.toTransaction(c, req)
	if !ok {
		return
	}

	err := h.store.UpdateTransaction(c.Request.Context(), c.Param("id"), c.Param("txnId"), txn, req.AffectedLeftUsers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) deleteTransaction(c *gin.Context) {
	leftUsers := c.QueryArray("leftUser")

	err := h.store.DeleteTransaction(c.Request.Context(), c.Param("id"), c.Param("txnId"), leftUsers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
