package dto

// CreatedAtLayout renders timestamps as UTC with microseconds and a literal Z.
const CreatedAtLayout = "2006-01-02T15:04:05.000000Z"

// CreateTodoRequest is the JSON body for POST /api/todos. Text is nil when
// the field is absent, null, or not a string.
type CreateTodoRequest struct {
	Text *string `json:"text"`
}

type TodoResponse struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	// Encrypted is only reported by the secure variant.
	Encrypted *bool `json:"encrypted,omitempty"`
}

// ClientCreateResponse is returned by POST /api/todos?client_id=...
type ClientCreateResponse struct {
	Count      int    `json:"count"`
	UserID     string `json:"user_id"`
	TodosCount int    `json:"todos_count"`
	Encrypted  *bool  `json:"encrypted,omitempty"`
}

// GlobalCreateResponse is returned by POST /api/todos without a client_id.
type GlobalCreateResponse struct {
	Count       int   `json:"count"`
	GlobalTodos int   `json:"global_todos"`
	Encrypted   *bool `json:"encrypted,omitempty"`
}

type SecurityFeatures struct {
	KMSEncryption         bool `json:"kms_encryption"`
	SecurityLogging       bool `json:"security_logging"`
	PerformanceMonitoring bool `json:"performance_monitoring"`
}

type StatusResponse struct {
	Status           string            `json:"status"`
	SecurityFeatures *SecurityFeatures `json:"security_features,omitempty"`
	Features         []string          `json:"features"`
	UsersCount       int               `json:"users_count"`
	GlobalTodosCount int               `json:"global_todos_count"`
	Version          string            `json:"version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
