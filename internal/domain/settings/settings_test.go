package settings

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Strob0t/settingsadmin/internal/domain"
)

func TestWriteRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"object", `{"theme":"dark"}`, false},
		{"nested object", ` {"a":{"b":[1,2,3]}} `, false},
		{"empty object", `{}`, false},
		{"missing", ``, true},
		{"null", `null`, true},
		{"array", `[1,2]`, true},
		{"scalar", `"x"`, true},
		{"invalid", `{bad}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := WriteRequest{Data: json.RawMessage(tt.data)}
			err := req.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePaging(t *testing.T) {
	if err := ValidatePaging(1, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePaging(0, 10); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for page 0, got %v", err)
	}
	if err := ValidatePaging(1, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for page_size 0, got %v", err)
	}
	if err := ValidatePaging(1, MaxPageSize+1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for oversized page, got %v", err)
	}
}

func TestOffset(t *testing.T) {
	if got := Offset(1, 10); got != 0 {
		t.Errorf("Offset(1, 10) = %d, want 0", got)
	}
	if got := Offset(3, 25); got != 50 {
		t.Errorf("Offset(3, 25) = %d, want 50", got)
	}
	if got := Offset(0, 10); got != 0 {
		t.Errorf("Offset(0, 10) = %d, want 0", got)
	}
}

func TestPretty(t *testing.T) {
	got := Pretty(json.RawMessage(`{"theme":"dark","n":{"x":1}}`))
	want := "{\n  \"theme\": \"dark\",\n  \"n\": {\n    \"x\": 1\n  }\n}"
	if got != want {
		t.Fatalf("Pretty mismatch:\n got: %q\nwant: %q", got, want)
	}

	if got := Pretty(json.RawMessage(`not json`)); got != "not json" {
		t.Fatalf("expected passthrough for invalid JSON, got %q", got)
	}
}
