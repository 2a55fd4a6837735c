package http

import (
	"errors"
	"net/http"

	"github.com/error-99/videocall/internal/api/http/converter"
	"github.com/error-99/videocall/internal/domain"
	"github.com/error-99/videocall/internal/repository"
	"github.com/error-99/videocall/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserController struct {
	users  service.UserInteractor
	roster service.Roster
}

func NewUserController(users service.UserInteractor, roster service.Roster) *UserController {
	return &UserController{users: users, roster: roster}
}

func (c *UserController) Register(ctx *gin.Context) {
	type request struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, token, err := c.users.Register(ctx.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": converter.UserToApi(user), "token": token})
}

func (c *UserController) Login(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, token, err := c.users.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": converter.UserToApi(user), "token": token})
}

func (c *UserController) GetUser(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("userID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := c.users.GetUser(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": converter.UserToApi(user)})
}

// ListOnline returns everyone currently online except the requester.
func (c *UserController) ListOnline(ctx *gin.Context) {
	identity, ok := identityFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}

	online := c.roster.Snapshot()
	users := make([]domain.Identity, 0, len(online))
	for _, user := range online {
		if user.ID == identity.ID {
			continue
		}
		users = append(users, user)
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}
