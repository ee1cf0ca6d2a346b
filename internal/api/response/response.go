package response

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WorkflowStarted is the body of a 202 for an event that started a workflow.
type WorkflowStarted struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id,omitempty"`
	Workflow   string `json:"workflow"`
}

// WriteAccepted writes a 202 with the started workflow.
func WriteAccepted(w http.ResponseWriter, started WorkflowStarted) {
	WriteJSON(w, http.StatusAccepted, started)
}
