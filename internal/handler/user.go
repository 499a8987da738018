package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/userbook/internal/apperror"
	"github.com/sakif/userbook/internal/model"
)

// UserService is what UserHandler needs from the service layer.
// *service.UserService satisfies it; tests pass a mock.
type UserService interface {
	GetOrCreate(ctx context.Context, name, address string) (*model.User, bool, error)
	List(ctx context.Context) ([]model.User, error)
}

// UserHandler serves the user endpoints.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// createUserRequest is the POST /users body. Only name and address are
// read; id and date_created in the body, if present, are ignored.
type createUserRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// HandleCreate returns the user with the given name, creating it first if needed.
//
// HTTP: POST /users
// REQUEST BODY: {"name": "Ann", "address": "1 Oak St"}
//
// STATUS:
// 201 on both paths. The client cannot tell "found" from "created": a call
// for an existing name returns the stored row, untouched, with the same 201.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be a JSON object with name and address"))
		return
	}

	user, _, err := h.users.GetOrCreate(r.Context(), req.Name, req.Address)
	if err != nil {
		h.logger.Error("get-or-create failed",
			slog.String("name", req.Name),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleList returns every user as a JSON array.
//
// HTTP: GET /getusers
//
// An empty table is [] with 200, not an error and not null.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}

	writeJSON(w, http.StatusOK, users)
}
