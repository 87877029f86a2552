package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")

	err := New(IOError, "artifact directory not found", cause)

	if err.Code != IOError {
		t.Errorf("Code = %v, want %v", err.Code, IOError)
	}
	if err.Message != "artifact directory not found" {
		t.Errorf("Message = %q, want %q", err.Message, "artifact directory not found")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       New(IOError, "cannot read artifact", errors.New("permission denied")),
			wantParts: []string{"IO_ERROR", "cannot read artifact", "permission denied"},
		},
		{
			name:      "with stage and input",
			err:       Newf(FormatError, "missing milestone number").WithStage(StageParse).WithInput("3.1-M"),
			wantParts: []string{"FORMAT_ERROR", "parse", "missing milestone number", `"3.1-M"`},
		},
		{
			name:      "without cause",
			err:       Newf(IntegrityError, "duplicate element %s", "Foo"),
			wantParts: []string{"INTEGRITY_ERROR", "duplicate element Foo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	errNoCause := Newf(ResolutionError, "unknown package qualifier")
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestWithStage_KeepsFirstStage(t *testing.T) {
	err := Newf(ResolutionError, "unknown import").WithStage(StageCollect)
	err.WithStage(StageRender)

	if err.Stage != StageCollect {
		t.Errorf("Stage = %q, want %q", err.Stage, StageCollect)
	}
}

func TestCodeOfAndIs(t *testing.T) {
	inner := Newf(IntegrityError, "duplicate")
	wrapped := fmt.Errorf("collect main: %w", inner)

	if CodeOf(wrapped) != IntegrityError {
		t.Errorf("CodeOf() = %v, want %v", CodeOf(wrapped), IntegrityError)
	}
	if !Is(wrapped, IntegrityError) {
		t.Error("Is(wrapped, IntegrityError) should be true")
	}
	if Is(wrapped, IOError) {
		t.Error("Is(wrapped, IOError) should be false")
	}
	if CodeOf(errors.New("plain")) != InternalError {
		t.Error("CodeOf(plain error) should be InternalError")
	}
}

func TestAtStage(t *testing.T) {
	if AtStage(nil, StageMatch) != nil {
		t.Error("AtStage(nil) should return nil")
	}

	plain := AtStage(errors.New("boom"), StageRender)
	e, ok := As(plain)
	if !ok {
		t.Fatal("AtStage should wrap plain errors into *Error")
	}
	if e.Code != InternalError || e.Stage != StageRender {
		t.Errorf("got code=%v stage=%v, want INTERNAL_ERROR/render", e.Code, e.Stage)
	}

	typed := AtStage(fmt.Errorf("ctx: %w", Newf(IOError, "missing")), StageCollect)
	if e, _ := As(typed); e.Stage != StageCollect {
		t.Errorf("Stage = %q, want %q", e.Stage, StageCollect)
	}
}

func TestError_WithDetails(t *testing.T) {
	err := Newf(IntegrityError, "duplicate")
	details := map[string]string{"key": "pkg/Foo#Bar()"}

	result := err.WithDetails(details)

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{IOError, false, 1},
		{ResolutionError, false, 1},
		{ConfigInvalid, false, 1},
		{FormatError, true, 0},
		{IntegrityError, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		FormatError,
		IOError,
		ResolutionError,
		IntegrityError,
		ConfigInvalid,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorActionsMap(t *testing.T) {
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
		}
	}
}
