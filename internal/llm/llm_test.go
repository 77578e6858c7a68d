package llm

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"well formed", "AIzaSyExampleExampleExampleExample", false},
		{"empty", "", true},
		{"wrong prefix", "sk-proj-1234567890", true},
		{"prefix only", "AIza", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKeyFormat) {
				t.Errorf("error %v is not ErrInvalidKeyFormat", err)
			}
		})
	}
}

func TestClassifyAuthenticationCodes(t *testing.T) {
	for _, code := range []int{401, 403} {
		err := classify(genai.APIError{Code: code, Message: "denied"})
		if !errors.Is(err, ErrAuthentication) {
			t.Errorf("classify(code %d) = %v, want ErrAuthentication", code, err)
		}
	}
}

func TestClassifyInvalidKeyMessage(t *testing.T) {
	err := classify(fmt.Errorf("got status 400: API key not valid. Please pass a valid API key"))
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("classify() = %v, want ErrAuthentication", err)
	}
}

func TestClassifyTransientFailures(t *testing.T) {
	tests := []error{
		genai.APIError{Code: 429, Message: "quota exceeded"},
		genai.APIError{Code: 500, Message: "internal"},
		errors.New("connection reset"),
	}
	for _, in := range tests {
		err := classify(in)
		if !errors.Is(err, ErrGeneration) {
			t.Errorf("classify(%v) = %v, want ErrGeneration", in, err)
		}
		if errors.Is(err, ErrAuthentication) {
			t.Errorf("classify(%v) misclassified as authentication", in)
		}
	}
}

func TestClassifyPreservesMessage(t *testing.T) {
	err := classify(genai.APIError{Code: 500, Message: "backend unavailable"})
	if got := err.Error(); got == "" || !errors.Is(err, ErrGeneration) {
		t.Fatalf("classify() = %v", err)
	}
}
