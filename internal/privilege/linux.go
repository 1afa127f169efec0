//go:build linux

package privilege

import (
	"fmt"
	"os"
)

// IsElevated returns true when the current process executes with root privileges.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// SerialGroup returns the group owning /dev/ttyUSB* and /dev/ttyACM*.
// Arch-based systems use uucp; everything else dialout.
func SerialGroup() string {
	if _, err := os.Stat("/etc/arch-release"); err == nil {
		return "uucp"
	}
	return "dialout"
}

// Hint tells the operator how to gain access to serial devices.
func Hint() string {
	return fmt.Sprintf("run with sudo, or add yourself to the %s group: sudo usermod -a -G %s $USER (then log in again)",
		SerialGroup(), SerialGroup())
}
