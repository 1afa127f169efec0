package privilege

import (
	"os"
	"strings"
	"testing"
)

func TestIsElevated(t *testing.T) {
	if got, want := IsElevated(), os.Geteuid() == 0; got != want {
		t.Errorf("IsElevated() = %v, want %v", got, want)
	}
}

func TestCheck(t *testing.T) {
	st := Check()
	if st.UID != os.Geteuid() {
		t.Errorf("UID = %d, want %d", st.UID, os.Geteuid())
	}
	if st.SerialGroup != SerialGroup() {
		t.Errorf("SerialGroup = %q, want %q", st.SerialGroup, SerialGroup())
	}
	if st.Elevated && !st.Sufficient() {
		t.Error("root should always be sufficient")
	}
}

func TestStatus_Sufficient(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want bool
	}{
		{"root", Status{Elevated: true, SerialGroup: "dialout"}, true},
		{"group member", Status{SerialGroup: "dialout", InSerialGroup: true}, true},
		{"no group needed", Status{}, true},
		{"plain user", Status{SerialGroup: "dialout"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.Sufficient(); got != tt.want {
				t.Errorf("Sufficient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHint(t *testing.T) {
	hint := Hint()
	if hint == "" {
		t.Fatal("Hint() should not be empty")
	}
	if g := SerialGroup(); g != "" && !strings.Contains(hint, g) {
		t.Errorf("Hint() should mention group %q: %s", g, hint)
	}
	if !strings.Contains(CurrentUserHint(), "uid=") {
		t.Errorf("CurrentUserHint() = %q", CurrentUserHint())
	}
}
