package models

// ErrorResponse - стандартный JSON ответа об ошибке.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message *Message `json:"message,omitempty"`
}
