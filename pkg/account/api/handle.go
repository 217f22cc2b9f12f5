package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/tendant/simple-account/pkg/account"
	pkgerrors "github.com/tendant/simple-account/pkg/errors"
)

// AccountService is the subset of *account.AccountService the handler needs
type AccountService interface {
	GetAccount(ctx context.Context, id int64) (account.AccountView, error)
	FindAccounts(ctx context.Context, userType account.UserType) ([]account.AccountView, error)
	CreateAccount(ctx context.Context, input account.AccountInput, userType account.UserType) (account.AccountView, error)
	UpdateAccount(ctx context.Context, id int64, input account.AccountInput, userType account.UserType) (account.AccountView, error)
	DeleteAccount(ctx context.Context, id int64, userType account.UserType) error
	FindRoles(ctx context.Context) ([]account.Role, error)
	CreateRole(ctx context.Context, name string) (account.Role, error)
}

// Handle handles HTTP requests for account management
type Handle struct {
	accountService AccountService
}

// NewHandle creates a new account handler
func NewHandle(accountService AccountService) *Handle {
	return &Handle{
		accountService: accountService,
	}
}

// AccountRequest represents the request body for creating or updating an account
type AccountRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	RoleIDs  []int64 `json:"role_ids"`
}

// RoleRequest represents the request body for creating a role
type RoleRequest struct {
	Name string `json:"name"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string                 `json:"status"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Routes returns the account routes
func (h *Handle) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/roles", h.ListRoles)
	r.Post("/roles", h.CreateRole)

	r.Route("/accounts/{userType}", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Post("/", h.CreateAccount)
		r.Get("/{id}", h.GetAccount)
		r.Put("/{id}", h.UpdateAccount)
		r.Delete("/{id}", h.DeleteAccount)
	})

	return r
}

// ListAccounts handles listing the accounts of one user type
func (h *Handle) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userType, ok := userTypeParam(w, r)
	if !ok {
		return
	}

	views, err := h.accountService.FindAccounts(r.Context(), userType)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if views == nil {
		views = []account.AccountView{}
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, views)
}

// CreateAccount handles the creation of a new account
func (h *Handle) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userType, ok := userTypeParam(w, r)
	if !ok {
		return
	}
	input, ok := decodeAccountRequest(w, r)
	if !ok {
		return
	}

	view, err := h.accountService.CreateAccount(r.Context(), input, userType)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, view)
}

// GetAccount handles retrieving an account by ID
func (h *Handle) GetAccount(w http.ResponseWriter, r *http.Request) {
	userType, ok := userTypeParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	view, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if view.UserType != userType {
		renderError(w, r, pkgerrors.NotFound("account", strconv.FormatInt(id, 10)))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, view)
}

// UpdateAccount handles updating an account and reconciling its roles
func (h *Handle) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userType, ok := userTypeParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	input, ok := decodeAccountRequest(w, r)
	if !ok {
		return
	}

	view, err := h.accountService.UpdateAccount(r.Context(), id, input, userType)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, view)
}

// DeleteAccount handles deleting an account and its role bindings
func (h *Handle) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userType, ok := userTypeParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), id, userType); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ListRoles handles listing the role catalog
func (h *Handle) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.accountService.FindRoles(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	if roles == nil {
		roles = []account.Role{}
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, roles)
}

// CreateRole handles adding a role to the catalog
func (h *Handle) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		renderError(w, r, pkgerrors.InvalidParam("body", "unable to parse body"))
		return
	}

	role, err := h.accountService.CreateRole(r.Context(), req.Name)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, role)
}

func decodeAccountRequest(w http.ResponseWriter, r *http.Request) (account.AccountInput, bool) {
	var req AccountRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		renderError(w, r, pkgerrors.InvalidParam("body", "unable to parse body"))
		return account.AccountInput{}, false
	}

	input := account.AccountInput{}
	if err := copier.Copy(&input, &req); err != nil {
		renderError(w, r, pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to map request"))
		return account.AccountInput{}, false
	}
	return input, true
}

func userTypeParam(w http.ResponseWriter, r *http.Request) (account.UserType, bool) {
	userType, err := account.ParseUserType(chi.URLParam(r, "userType"))
	if err != nil {
		renderError(w, r, pkgerrors.InvalidParam("userType", err.Error()))
		return "", false
	}
	return userType, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		renderError(w, r, pkgerrors.InvalidParam("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// renderError renders a structured error with the status code mapped from its error code
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := pkgerrors.GetCode(err)
	response := ErrorResponse{
		Status:  "error",
		Code:    string(code),
		Message: err.Error(),
	}

	var e *pkgerrors.Error
	if errors.As(err, &e) {
		response.Message = e.Message
		response.Details = e.Details
	}

	status := pkgerrors.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, response)
}
