package response

// Response is the error envelope written by middleware and the global echo
// error handler.
type Response struct {
	Status  string      `json:"status"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Error(code, message string, details interface{}) Response {
	return Response{
		Status:  "error",
		Code:    code,
		Message: message,
		Details: details,
	}
}
