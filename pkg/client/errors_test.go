package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{
			name:       "client error should not retry",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "rate limit should retry",
			errorClass: ErrorClassRateLimit,
			expected:   true,
		},
		{
			name:       "network error should retry",
			errorClass: ErrorClassNetwork,
			expected:   true,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Method:     "GET",
				Endpoint:   "/gallery/images/",
				Payload:    ErrorPayload{"detail": "Request was throttled."},
				Err:        ErrThrottled,
			},
			expected: "api rate_limit error (status 429) GET /gallery/images/: Request was throttled.: request throttled",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Method:     "GET",
				Endpoint:   "/mentorship/mentors/{id}/",
				Payload:    ErrorPayload{"detail": "Not found."},
			},
			expected: "api client error (status 404) GET /mentorship/mentors/{id}/: Not found.",
		},
		{
			name: "empty payload",
			apiError: &APIError{
				StatusCode: 400,
				ErrorClass: ErrorClassClient,
				Method:     "POST",
				Endpoint:   "/mentorship/requests/",
				Payload:    ErrorPayload{},
			},
			expected: "api client error (status 400) POST /mentorship/requests/: request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	apiErr := &APIError{StatusCode: 429, ErrorClass: ErrorClassRateLimit, Err: ErrThrottled}
	wrapped := fmt.Errorf("load mentors: %w", apiErr)

	if !errors.Is(wrapped, ErrThrottled) {
		t.Error("errors.Is should find ErrThrottled through APIError")
	}

	var target *APIError
	if !errors.As(wrapped, &target) || target.StatusCode != 429 {
		t.Error("errors.As should extract the APIError")
	}
}

func TestAPIError_UnwrapNil(t *testing.T) {
	apiErr := &APIError{StatusCode: 500}
	if apiErr.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no error is wrapped")
	}
}

func TestErrorPayload_Message(t *testing.T) {
	tests := []struct {
		name    string
		payload ErrorPayload
		want    string
	}{
		{"error key", ErrorPayload{"error": "Cannot request mentorship from yourself"}, "Cannot request mentorship from yourself"},
		{"detail key", ErrorPayload{"detail": "Authentication credentials were not provided."}, "Authentication credentials were not provided."},
		{"message key", ErrorPayload{"message": "Error fetching categories"}, "Error fetching categories"},
		{"error wins over detail", ErrorPayload{"detail": "b", "error": "a"}, "a"},
		{"field errors sorted", ErrorPayload{"goals": []any{"Required."}, "bio": []any{"Too short."}}, "bio: Too short."},
		{"non-string values", ErrorPayload{"status": 400.0}, ""},
		{"empty", ErrorPayload{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payload.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorPayload_FieldErrors(t *testing.T) {
	payload := ErrorPayload{
		"goals":             []any{"This field is required.", "Too short."},
		"linkedin_url":      "Enter a valid URL.",
		"detail":            "ignored",
		"duration_months":   []any{3.0},
		"preferred_channel": map[string]any{"x": 1},
	}

	fields := payload.FieldErrors()
	if len(fields) != 2 {
		t.Fatalf("FieldErrors() = %v, want 2 entries", fields)
	}
	if fields["goals"] != "This field is required. Too short." {
		t.Errorf("goals = %q", fields["goals"])
	}
	if fields["linkedin_url"] != "Enter a valid URL." {
		t.Errorf("linkedin_url = %q", fields["linkedin_url"])
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"json object", `{"error": "boom"}`, "boom"},
		{"empty body", ``, "Network Error"},
		{"html", `<html></html>`, "Network Error"},
		{"string list", `["Mentor is not accepting requests."]`, "Mentor is not accepting requests."},
		{"multiple strings", `["First.", "Second."]`, "First. Second."},
		{"empty list", `[]`, "Network Error"},
		{"list without strings", `[1, {"a": "b"}]`, "Network Error"},
		{"null", `null`, "Network Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parsePayload([]byte(tt.body)).Message(); got != tt.want {
				t.Errorf("parsePayload(%q).Message() = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api error with message", &APIError{Payload: ErrorPayload{"error": "Mentor is not accepting new mentees"}}, "Mentor is not accepting new mentees"},
		{"api error without message", &APIError{Payload: ErrorPayload{}}, "Request failed"},
		{"network error", &NetworkError{Err: errors.New("refused")}, "Network Error"},
		{"wrapped network error", fmt.Errorf("x: %w", &NetworkError{Err: errors.New("refused")}), "Network Error"},
		{"other error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
