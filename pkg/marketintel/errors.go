package marketintel

import "fmt"

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketintel: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case 502, 503, 504, 429:
		return true
	}
	return false
}
