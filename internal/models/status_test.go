package models_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/micro-nova/btplayer/internal/models"
)

func TestDefaultStatus(t *testing.T) {
	st := models.DefaultStatus()
	if st.State != "idle" {
		t.Errorf("State = %q, want %q", st.State, "idle")
	}
	if st.Volume != 80 {
		t.Errorf("Volume = %d, want 80", st.Volume)
	}
}

func TestStatusOmitsEmptyError(t *testing.T) {
	data, err := json.Marshal(models.DefaultStatus())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("marshalled status %s should omit empty error", data)
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := models.ErrNotFound("no such button")
	if err.Error() != "no such button" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
}
