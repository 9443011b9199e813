package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/setil-app/backend/internal/money"
	"github.com/setil-app/backend/internal/store"
)

type createGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Currency    string `json:"currency" binding:"required"`
}

func (h *Handlers) createGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currency := money.Currency(req.Currency)
	if !currency.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported currency"})
		return
	}

	groupID, err := h.store.CreateGroup(c.Request.Context(), req.Name, req.Description, currency)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": groupID})
}

func (h *Handlers) listGroups(c *gin.Context) {
	summaries, err := h.store.UserGroups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": summaries})
}

func (h *Handlers) getGroup(c *gin.Context) {
	groupID := c.Param("id")
	ctx := c.Request.Context()

	if !h.requireMember(c, groupID) {
		return
	}

	group, err := h.store.GetGroup(ctx, groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	members, err := h.store.Members(ctx, groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group, "members": members})
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *Handlers) updateGroup(c *gin.Context) {
	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := store.GroupUpdate{Name: req.Name, Description: req.Description}
	if err := h.store.UpdateGroup(c.Request.Context(), c.Param("id"), update); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) deleteGroup(c *gin.Context) {
	groupID := c.Param("id")
	if !h.requireOwner(c, groupID) {
		return
	}

	if err := h.store.DeleteGroup(c.Request.Context(), groupID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) createInvite(c *gin.Context) {
	code, err := h.store.Invite(c.Request.Context(), c.Param("id"), h.inviteTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code})
}

type joinGroupRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handlers) joinGroup(c *gin.Context) {
	var req joinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.JoinGroup(c.Request.Context(), c.Param("id"), req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) leaveGroup(c *gin.Context) {
	if err := h.store.LeaveGroup(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type promoteRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *Handlers) promoteUser(c *gin.Context) {
	groupID := c.Param("id")
	if !h.requireOwner(c, groupID) {
		return
	}

	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.PromoteUser(c.Request.Context(), groupID, req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) removeUser(c *gin.Context) {
	groupID := c.Param("id")
	if !h.requireOwner(c, groupID) {
		return
	}

	if err := h.store.RemoveUser(c.Request.Context(), groupID, c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type renameMemberRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

func (h *Handlers) renameMember(c *gin.Context) {
	var req renameMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.ChangeUserName(c.Request.Context(), c.Param("id"), c.Param("userId"), req.DisplayName); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type balanceEntry struct {
	Amount    int64  `json:"amount"`
	Formatted string `json:"formatted"`
}

type settlementEntry struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Formatted string `json:"formatted"`
}

// groupBalances returns every member's net balance plus the settle-up
// plan, with amounts formatted in the group's currency.
func (h *Handlers) groupBalances(c *gin.Context) {
	groupID := c.Param("id")
	ctx := c.Request.Context()

	if !h.requireMember(c, groupID) {
		return
	}

	group, err := h.store.GetGroup(ctx, groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	balances, err := h.store.Balances(ctx, groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	entries := make(map[string]balanceEntry, len(balances))
	for userID, amount := range balances {
		entries[userID] = balanceEntry{
			Amount:    amount,
			Formatted: money.Format(amount, group.Currency),
		}
	}

	settlements, err := h.store.SettleUp(ctx, groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	plan := make([]settlementEntry, len(settlements))
	for i, s := range settlements {
		plan[i] = settlementEntry{
			From:      s.From,
			To:        s.To,
			Amount:    s.Amount,
			Formatted: money.Format(s.Amount, group.Currency),
		}
	}

	c.JSON(http.StatusOK, gin.H{"balances": entries, "settlements": plan})
}
