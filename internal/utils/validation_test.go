package utils

import (
	"strings"
	"testing"
)

// endpointConfig mirrors a typical sink configuration struct with
// validation tags
type endpointConfig struct {
	URL      string `validate:"required,url" mapstructure:"url"`
	Interval string `validate:"required" mapstructure:"interval"`
	Token    string `mapstructure:"token"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name          string
		input         interface{}
		expectError   bool
		errorContains []string
	}{
		{
			name: "Valid config",
			input: &endpointConfig{
				URL:      "https://alerts.example.com/hook",
				Interval: "30s",
				Token:    "secret",
			},
			expectError: false,
		},
		{
			name: "Missing required fields",
			input: &endpointConfig{
				Token: "secret",
				// URL and Interval missing
			},
			expectError:   true,
			errorContains: []string{"url is required", "interval is required"},
		},
		{
			name: "Malformed URL",
			input: &endpointConfig{
				URL:      "not-a-url",
				Interval: "30s",
			},
			expectError:   true,
			errorContains: []string{"url"},
		},
		{
			name:          "Nil input",
			input:         nil,
			expectError:   true,
			errorContains: []string{"invalid validation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got nil")
				return
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no error but got: %v", err)
				return
			}

			if tt.expectError && err != nil {
				errStr := err.Error()
				for _, expected := range tt.errorContains {
					if !strings.Contains(errStr, expected) {
						t.Errorf("error message '%s' does not contain '%s'", errStr, expected)
					}
				}
			}
		})
	}
}
