package model

// AuthComponent holds the login markup detected on a page. Text fields are
// empty when the detector could not locate the corresponding element.
type AuthComponent struct {
	Found         bool   `json:"found"`
	HTMLSnippet   string `json:"htmlSnippet,omitempty"`
	FormElement   string `json:"formElement,omitempty"`
	UsernameInput string `json:"usernameInput,omitempty"`
	PasswordInput string `json:"passwordInput,omitempty"`
	SubmitButton  string `json:"submitButton,omitempty"`
	Method        string `json:"method,omitempty"`
	Action        string `json:"action,omitempty"`
}

// ResultRecord is the outcome of one detection attempt.
type ResultRecord struct {
	URL           string         `json:"url"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	AuthComponent *AuthComponent `json:"authComponent,omitempty"`
}

// Failed builds the record used when a detection attempt did not complete.
func Failed(url, message string) ResultRecord {
	return ResultRecord{URL: url, Success: false, Error: message}
}

// ScrapeRequest is the body accepted by the scrape endpoints.
type ScrapeRequest struct {
	URL  string   `json:"url,omitempty"`
	URLs []string `json:"urls,omitempty"`
}

// BatchResponse wraps the results of a multi-URL detection.
type BatchResponse struct {
	Results []ResultRecord `json:"results"`
}

// ErrorResponse is the JSON shape returned on failure. Clients read Detail
// first and fall back to Error.
type ErrorResponse struct {
	Detail     string `json:"detail,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Message returns the most specific human-readable text in the payload, or
// an empty string when the server sent neither field.
func (e ErrorResponse) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error
}
