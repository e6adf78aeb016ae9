package handlers

import (
	"errors"
	"net/http"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/dto"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/scope"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	msgListFailed   = "Failed to retrieve todos"
	msgCreateFailed = "Failed to create todo"
)

type TodoHandler struct {
	svc    *service.TodoService
	secure bool
}

// NewTodoHandler returns a handler. secure selects the response shapes of
// the security-hardened variant, which additionally report encryption.
func NewTodoHandler(svc *service.TodoService, secure bool) *TodoHandler {
	return &TodoHandler{svc: svc, secure: secure}
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        client_id  query     string                  false  "Client collection"
// @Param        body       body      dto.CreateTodoRequest   true   "Todo body"
// @Success      201        {object}  dto.ClientCreateResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Failure      500        {object}  dto.ErrorResponse
// @Router       /todos [post]
func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Text = nil
	}

	clientID := scope.ClientIDFromContext(c)
	res, err := h.svc.Create(c.Request.Context(), clientID, req.Text)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgCreateFailed})
		return
	}

	var encrypted *bool
	if h.secure {
		encrypted = &res.Encrypted
	}
	if clientID != "" {
		c.JSON(http.StatusCreated, dto.ClientCreateResponse{
			Count:      res.Count,
			UserID:     clientID,
			TodosCount: res.Count,
			Encrypted:  encrypted,
		})
		return
	}
	c.JSON(http.StatusCreated, dto.GlobalCreateResponse{
		Count:       res.Count,
		GlobalTodos: res.Count,
		Encrypted:   encrypted,
	})
}

// List godoc
// @Summary      List todos of a client, or the global list
// @Tags         todos
// @Produce      json
// @Param        client_id  query     string  false  "Client collection"
// @Success      200        {array}   dto.TodoResponse
// @Failure      500        {object}  dto.ErrorResponse
// @Router       /todos [get]
func (h *TodoHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), scope.ClientIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgListFailed})
		return
	}
	c.JSON(http.StatusOK, h.todosToResponses(list))
}

// Options godoc
// @Summary      CORS preflight
// @Tags         todos
// @Success      200
// @Router       /todos [options]
func (h *TodoHandler) Options(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *TodoHandler) todoToResponse(t dom.Todo) dto.TodoResponse {
	r := dto.TodoResponse{
		ID:        t.ID,
		Text:      t.Text,
		CreatedAt: t.CreatedAt.UTC().Format(dto.CreatedAtLayout),
	}
	if h.secure {
		encrypted := t.Encrypted
		r.Encrypted = &encrypted
	}
	return r
}

func (h *TodoHandler) todosToResponses(list []dom.Todo) []dto.TodoResponse {
	out := make([]dto.TodoResponse, len(list))
	for i := range list {
		out[i] = h.todoToResponse(list[i])
	}
	return out
}
