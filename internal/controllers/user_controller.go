package controllers

import (
	"errors"
	"net/http"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

type UserController struct {
	store storage.Store
}

func NewUserController(store storage.Store) *UserController {
	return &UserController{store: store}
}

func (uc *UserController) GetCurrentUser(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		respondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	user, err := uc.store.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, apperr.NotFound("User not found"))
			return
		}
		respondError(c, apperr.Internal("Failed to load user", err))
		return
	}

	respondData(c, http.StatusOK, user)
}
