package services

// Result is what every engine action returns on success: a message for the
// user and the entity as it is after the action.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func ok[T any](message string, data T) *Result[T] {
	return &Result[T]{Success: true, Message: message, Data: data}
}
