package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/reactivekit/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New().Required("name", "")
	if !v.HasErrors() {
		t.Fatal("expected error for empty required field")
	}
	if v.Errors()[0].Field != "name" {
		t.Errorf("expected field 'name', got %q", v.Errors()[0].Field)
	}

	if New().Required("name", "John").HasErrors() {
		t.Error("expected no error for non-empty field")
	}
}

func TestValidatorRange(t *testing.T) {
	tests := []struct {
		value   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{500, false},
		{1000, false},
		{1001, true},
	}
	for _, tc := range tests {
		v := New().Range("count", tc.value, 1, 1000)
		if v.HasErrors() != tc.wantErr {
			t.Errorf("Range(%d): wantErr=%v, got %v", tc.value, tc.wantErr, v.Errors())
		}
	}
}

func TestValidatorDurationRange(t *testing.T) {
	v := New().DurationRange("period", 5*time.Millisecond, 10*time.Millisecond, time.Minute)
	if !v.HasErrors() {
		t.Error("expected error for period below minimum")
	}
	if New().DurationRange("period", time.Second, 10*time.Millisecond, time.Minute).HasErrors() {
		t.Error("expected 1s to be accepted")
	}
}

func TestValidatorOneOf(t *testing.T) {
	allowed := []string{"json", "ndjson"}
	if New().OneOf("format", "json", allowed).HasErrors() {
		t.Error("expected json to be accepted")
	}
	if New().OneOf("format", "", allowed).HasErrors() {
		t.Error("empty value should be skipped")
	}
	if !New().OneOf("format", "xml", allowed).HasErrors() {
		t.Error("expected xml to be rejected")
	}
}

func TestValidatorCustom(t *testing.T) {
	if !New().Custom(false, "limit", "must not be negative").HasErrors() {
		t.Error("expected custom error")
	}
}

func TestValidatorInt(t *testing.T) {
	v := New()
	if got := v.Int("count", "", 5); got != 5 {
		t.Errorf("empty should yield default, got %d", got)
	}
	if got := v.Int("count", "12", 5); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
	if v.HasErrors() {
		t.Fatalf("unexpected errors: %v", v.Errors())
	}
	if got := v.Int("count", "twelve", 5); got != 5 || !v.HasErrors() {
		t.Errorf("expected default and error for non-integer, got %d %v", got, v.Errors())
	}
}

func TestValidatorDuration(t *testing.T) {
	v := New()
	if got := v.Duration("period", "250ms", time.Second); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", got)
	}
	if got := v.Duration("period", "", time.Second); got != time.Second {
		t.Errorf("expected default, got %v", got)
	}
	v.Duration("period", "soon", time.Second)
	if !v.HasErrors() {
		t.Error("expected error for invalid duration")
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New().Range("count", 0, 1, 10).Required("name", "")
	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected AppError")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "count") || !strings.Contains(appErr.Message, "name") {
		t.Errorf("message should list both fields: %q", appErr.Message)
	}
	if New().Validate() != nil {
		t.Error("expected nil for no errors")
	}
}

type sectionConfig struct {
	Names    []string      `mapstructure:"names" validate:"required,min=1"`
	MaxDelay time.Duration `mapstructure:"max_delay" validate:"gte=0"`
	Mode     string        `mapstructure:"mode" validate:"omitempty,oneof=ordered unordered"`
}

type rootConfig struct {
	Section sectionConfig `mapstructure:"section"`
}

func TestStructValidateValid(t *testing.T) {
	cfg := rootConfig{Section: sectionConfig{Names: []string{"alex"}, MaxDelay: time.Second, Mode: "ordered"}}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	cfg := rootConfig{Section: sectionConfig{MaxDelay: -time.Second, Mode: "random"}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	for _, want := range []string{"section.names", "section.max_delay", "section.mode"} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("expected message to mention %q, got %q", want, appErr.Message)
		}
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Errorf("expected 3 field errors in details, got %v", appErr.Details["fields"])
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("MaxDelay"); got != "max_delay" {
		t.Errorf("got %q", got)
	}
}
