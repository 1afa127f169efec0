package janos

import (
	"errors"
	"testing"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
)

func TestSelectNetworks(t *testing.T) {
	got, err := SelectNetworks([]int{1, 3, 5})
	if err != nil {
		t.Fatalf("SelectNetworks() error: %v", err)
	}
	if got != "select_networks 1 3 5" {
		t.Errorf("SelectNetworks() = %q", got)
	}

	if _, err := SelectNetworks(nil); !errors.Is(err, janoserrors.ErrInvalidSelection) {
		t.Errorf("SelectNetworks(nil) error = %v, want ErrInvalidSelection", err)
	}
	if _, err := SelectNetworks([]int{2, 0}); !errors.Is(err, janoserrors.ErrInvalidSelection) {
		t.Errorf("SelectNetworks([2 0]) error = %v, want ErrInvalidSelection", err)
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		host    string
		want    string
		wantErr bool
	}{
		{host: "8.8.8.8", want: "ping 8.8.8.8"},
		{host: "  example.com ", want: "ping example.com"},
		{host: "", wantErr: true},
		{host: "a b", wantErr: true},
		{host: "host\x00", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Ping(tt.host)
		if tt.wantErr {
			if !errors.Is(err, janoserrors.ErrInvalidInput) {
				t.Errorf("Ping(%q) error = %v, want validation error", tt.host, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Ping(%q) = %q, %v; want %q", tt.host, got, err, tt.want)
		}
	}
}

func TestValidateRaw(t *testing.T) {
	if got, err := ValidateRaw("  help  "); err != nil || got != "help" {
		t.Errorf("ValidateRaw() = %q, %v", got, err)
	}
	for _, bad := range []string{"", "   ", "stop\nreboot", "a\x1b[2J"} {
		if _, err := ValidateRaw(bad); !errors.Is(err, janoserrors.ErrInvalidCommand) {
			t.Errorf("ValidateRaw(%q) error = %v, want ErrInvalidCommand", bad, err)
		}
	}
}
