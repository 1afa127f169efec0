//go:build darwin

package privilege

import "os"

// IsElevated returns true when the current process executes with root privileges.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// SerialGroup returns "" because /dev/cu.* devices are world accessible on macOS.
func SerialGroup() string {
	return ""
}

// Hint tells the operator how to gain access to serial devices.
func Hint() string {
	return "check that the USB-UART driver is installed and the device shows up as /dev/cu.*; or run with sudo"
}
