//go:build !unix

package serialport

// accessRW is left to serial.Open on platforms without access(2).
func accessRW(path string) error {
	return nil
}
