package rp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Error is a failed exchange with the authorization server.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Description)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.Status)
}

// asError turns an oauth2 retrieve error into an *Error. Other errors pass through.
func asError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	e := &Error{Code: re.ErrorCode, Description: re.ErrorDescription}
	if re.Response != nil {
		e.Status = re.Response.StatusCode
	}
	if e.Code == "" {
		e.Code = http.StatusText(e.Status)
	}
	return e
}

// errorBody reads an OAuth2 style error body. Either member may be missing.
func errorBody(status int, body []byte) (code, description string) {
	var parsed struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		code, description = parsed.Error, parsed.ErrorDescription
		if description == "" {
			description = parsed.Message
		}
	}
	if code == "" {
		code = http.StatusText(status)
	}
	return code, description
}
