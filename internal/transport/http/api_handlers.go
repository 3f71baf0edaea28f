package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nkoval/dmrelay-server/internal/auth"
	"github.com/nkoval/dmrelay-server/internal/contacts"
	"github.com/nkoval/dmrelay-server/internal/store"
)

// APIHandlers provides HTTP handlers for enrollment and page view data.
type APIHandlers struct {
	authService *auth.Service
	store       store.Store
	contacts    *contacts.Deriver
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, st store.Store, deriver *contacts.Deriver, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		store:       st,
		contacts:    deriver,
		log:         logger,
	}
}

// SignInRequest represents the enrollment request body.
type SignInRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse represents a user in API responses. ID is the opaque
// public handle, never the internal row id.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// HomeResponse is the page view data contract for the main view.
type HomeResponse struct {
	Username string         `json:"username"`
	Users    []UserResponse `json:"users"`
	Contacts []UserResponse `json:"contacts"`
}

// MessageResponse represents a persisted message in API responses.
type MessageResponse struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Content  string `json:"content"`
	Sequence int64  `json:"sequence"`
}

// ChatResponse is the page view data contract for a selected conversation.
type ChatResponse struct {
	HomeResponse
	Peer     UserResponse      `json:"peer"`
	Messages []MessageResponse `json:"messages"`
}

// SignIn handles enrollment: find-or-create the user, issue a credential,
// and set it as an HTTP-only cookie before redirecting to the main view.
// POST /api/signin
func (h *APIHandlers) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid signin request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username is required"})
		return
	}

	token, user, err := h.authService.SignIn(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidUsername) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid username"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("signin failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.SetCookie(
		CredentialCookie,
		token,
		h.authService.TokenTTL(),
		"/",
		"",
		false, // secure (set to true in production with HTTPS)
		true,  // httpOnly
	)

	h.log.Info().Str("username", user.Username).Msg("user signed in")
	c.Redirect(http.StatusFound, "/")
}

// Home supplies the main view data: the user directory excluding self
// and the derived contact set.
// GET /api/home
func (h *APIHandlers) Home(c *gin.Context) {
	username := c.GetString(ContextKeyUsername)

	home, ok := h.homeData(c, username)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, home)
}

// Chat supplies the conversation view data for the counterpart selected
// by opaque public id, including full message history.
// GET /api/chat/:id
func (h *APIHandlers) Chat(c *gin.Context) {
	username := c.GetString(ContextKeyUsername)

	peer, err := h.store.GetUserByPublicID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("id", c.Param("id")).Msg("peer lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	home, ok := h.homeData(c, username)
	if !ok {
		return
	}

	history, err := h.store.History(c.Request.Context(), username, peer.Username)
	if err != nil {
		h.log.Error().Err(err).Str("peer", peer.Username).Msg("history fetch failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	messages := make([]MessageResponse, 0, len(history))
	for _, msg := range history {
		messages = append(messages, MessageResponse{
			From:     msg.From,
			To:       msg.To,
			Content:  msg.Content,
			Sequence: msg.Seq,
		})
	}

	c.JSON(http.StatusOK, ChatResponse{
		HomeResponse: home,
		Peer:         UserResponse{ID: peer.PublicID, Username: peer.Username},
		Messages:     messages,
	})
}

func (h *APIHandlers) homeData(c *gin.Context, username string) (HomeResponse, bool) {
	users, err := h.store.ListUsersExcluding(c.Request.Context(), username)
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("directory fetch failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return HomeResponse{}, false
	}

	contactUsers, err := h.contacts.ContactsOf(c.Request.Context(), username)
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("contact derivation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return HomeResponse{}, false
	}

	home := HomeResponse{
		Username: username,
		Users:    make([]UserResponse, 0, len(users)),
		Contacts: make([]UserResponse, 0, len(contactUsers)),
	}
	for _, u := range users {
		home.Users = append(home.Users, UserResponse{ID: u.PublicID, Username: u.Username})
	}
	for _, u := range contactUsers {
		home.Contacts = append(home.Contacts, UserResponse{ID: u.PublicID, Username: u.Username})
	}

	return home, true
}
