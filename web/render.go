package web

import (
	"encoding/json"
	"net/http"

	"github.com/Fruitloop24/metergate/domain/tier"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// renderLimit turns the unlimited sentinel into the string
// "unlimited"; finite values pass through as numbers.
func renderLimit(v int64) any {
	if tier.IsUnlimited(v) {
		return "unlimited"
	}
	return v
}
