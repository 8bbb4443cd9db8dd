package apiclient

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/omelentjeff/product-management-app/internal/errs"
)

const maxErrorBody = 1 << 20

// errorBody is the server's structured error response.
type errorBody struct {
	Status    int      `json:"status"`
	Message   string   `json:"message"`
	TimeStamp any      `json:"timeStamp"`
	Details   []string `json:"details"`
}

// decodeError turns a non-2xx response into a typed error. Bodies that are
// not the structured form still produce an APIError with the raw body.
func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	_ = json.Unmarshal(b, &eb)

	if resp.StatusCode == http.StatusBadRequest && len(eb.Details) > 0 {
		return &errs.ValidationError{Message: eb.Message, Fields: errs.ParseDetails(eb.Details)}
	}
	return &errs.APIError{Status: resp.StatusCode, Message: eb.Message, Body: b}
}
