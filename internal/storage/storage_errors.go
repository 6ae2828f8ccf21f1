package storage

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"
	"github.com/openmined/cdnpublish/internal/errs"
)

// APIError is the structured error body returned by the storage service.
type APIError struct {
	HTTPCode StatusCode `json:"HttpCode"`
	Message  string     `json:"Message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage api error: %d - %s", e.HTTPCode, e.Message)
}

// handleResponse maps a req outcome onto the error taxonomy.
// 401, 403 and 404 must carry a JSON error body; any other failure status is wrapped with its body text.
func handleResponse(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return errs.Wrap(errs.KindHTTPClient, requestErr, "%s", operation)
	}

	if resp.IsSuccessState() {
		return nil
	}

	status := resp.GetStatusCode()
	body, err := resp.ToBytes()
	if err != nil {
		return errs.Wrap(errs.KindHTTPClient, err, "%s: read response", operation)
	}

	apiErr := &APIError{}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		if err := jsonUnmarshal(body, apiErr); err != nil {
			return errs.Wrap(errs.KindSerialization, err, "%s: decode error response (status %d)", operation, status)
		}
	default:
		if err := jsonUnmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}

	if apiErr.HTTPCode == 0 {
		apiErr.HTTPCode = StatusCode(status)
	}
	return errs.Wrap(errs.KindHTTPResponse, apiErr, "%s", operation)
}
