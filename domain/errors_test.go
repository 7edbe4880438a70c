package domain

import (
	"fmt"
	"testing"
)

func TestDialogueServiceErrorRendering(t *testing.T) {
	err := NewDialogueServiceError(401, `{"error":"invalid api key"}`)

	want := `[ERROR 401] {"error":"invalid api key"}`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Status != 401 {
		t.Errorf("Status = %d, want 401", err.Status)
	}
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	inner := NewTurnError(ErrTranscode, "failed to decode WAV container", nil)
	wrapped := fmt.Errorf("turn aborted: %w", inner)

	if kind := KindOf(wrapped); kind != ErrTranscode {
		t.Errorf("KindOf(wrapped) = %q, want %q", kind, ErrTranscode)
	}
	if kind := KindOf(fmt.Errorf("plain")); kind != "" {
		t.Errorf("KindOf(plain) = %q, want empty", kind)
	}
}
