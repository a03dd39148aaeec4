package testapp

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes an error body in the application's shape.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// WriteValidationError writes a rejected contact the way the application reports it.
func WriteValidationError(w http.ResponseWriter, err *ValidationError) error {
	errs := make(map[string]map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		errs[f.Field] = map[string]string{"message": f.Message}
	}
	return WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
		"_message": "Contact validation failed",
		"message":  err.Error(),
		"errors":   errs,
	})
}
