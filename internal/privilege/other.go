//go:build !linux && !darwin

package privilege

import "os"

// IsElevated returns true when the current process executes with root privileges.
// Platforms without Unix user IDs report false.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// SerialGroup returns "" on platforms without a serial device group.
func SerialGroup() string {
	return ""
}

// Hint tells the operator how to gain access to serial devices.
func Hint() string {
	return "make sure no other program has the port open and that you have permission to use it"
}
