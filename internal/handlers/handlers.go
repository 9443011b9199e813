// Package handlers exposes the ledger operations over HTTP.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/setil-app/backend/internal/auth"
	"github.com/setil-app/backend/internal/calculator"
	"github.com/setil-app/backend/internal/config"
	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/identity"
	"github.com/setil-app/backend/internal/middleware"
	"github.com/setil-app/backend/internal/store"
)

// Handlers bundles the dependencies of the HTTP API.
type Handlers struct {
	store     *store.Store
	authn     auth.Authenticator
	jwt       *auth.JWTManager
	ids       identity.Provider
	inviteTTL time.Duration
}

// New creates the API handlers.
func New(s *store.Store, authn auth.Authenticator, jwt *auth.JWTManager, inviteTTL time.Duration) *Handlers {
	return &Handlers{
		store:     s,
		authn:     authn,
		jwt:       jwt,
		ids:       identity.FromContext{},
		inviteTTL: inviteTTL,
	}
}

// Router builds the gin engine with middleware and all routes.
func (h *Handlers) Router(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logging(), middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.AllowedOrigin}
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", h.register)
	authRoutes.POST("/login", h.login)
	authRoutes.GET("/me", middleware.RequireAuth(h.jwt), h.me)

	groups := api.Group("/groups", middleware.RequireAuth(h.jwt))
	groups.POST("", h.createGroup)
	groups.GET("", h.listGroups)
	groups.GET("/:id", h.getGroup)
	groups.PATCH("/:id", h.updateGroup)
	groups.DELETE("/:id", h.deleteGroup)

	groups.POST("/:id/invites", h.createInvite)
	groups.POST("/:id/join", h.joinGroup)
	groups.POST("/:id/leave", h.leaveGroup)
	groups.POST("/:id/promote", h.promoteUser)
	groups.DELETE("/:id/members/:userId", h.removeUser)
	groups.PATCH("/:id/members/:userId", h.renameMember)

	groups.GET("/:id/balances", h.groupBalances)

	groups.GET("/:id/transactions", h.listTransactions)
	groups.POST("/:id/transactions", h.createTransaction)
	groups.PUT("/:id/transactions/:txnId", h.updateTransaction)
	groups.DELETE("/:id/transactions/:txnId", h.deleteTransaction)

	return router
}

// respondError maps core errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, identity.ErrNotSignedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, docstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInviteInvalid):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, calculator.ErrInvalidSplit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, docstore.ErrWriteConflict):
		// Nothing was committed; the client may retry immediately.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// currentUser resolves the authenticated user from the request context.
func (h *Handlers) currentUser(c *gin.Context) (identity.User, bool) {
	user, err := h.ids.CurrentUser(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return identity.User{}, false
	}
	return user, true
}

// requireMember checks the caller has a member record in the group.
// Departed members keep read access to their settled history.
func (h *Handlers) requireMember(c *gin.Context, groupID string) bool {
	user, ok := h.currentUser(c)
	if !ok {
		return false
	}

	if _, err := h.store.GetGroup(c.Request.Context(), groupID); err != nil {
		respondError(c, err)
		return false
	}

	members, err := h.store.Members(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return false
	}
	if _, ok := members[user.ID]; !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this group"})
		return false
	}
	return true
}

// requireOwner loads the group and checks the caller owns it.
func (h *Handlers) requireOwner(c *gin.Context, groupID string) bool {
	user, ok := h.currentUser(c)
	if !ok {
		return false
	}

	group, err := h.store.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return false
	}
	if group.OwnerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the group owner may do this"})
		return false
	}
	return true
}
