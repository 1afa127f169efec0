package serialport

import (
	"errors"
	"testing"
)

func TestIsProbable(t *testing.T) {
	tests := []struct {
		name string
		port PortInfo
		want bool
	}{
		{"espressif vid", PortInfo{Name: "/dev/ttyACM0", VID: "303A", PID: "1001"}, true},
		{"cp210x vid", PortInfo{Name: "/dev/ttyUSB0", VID: "10c4", PID: "ea60"}, true},
		{"ch340 vid", PortInfo{Name: "/dev/ttyUSB1", VID: "1a86", PID: "7523"}, true},
		{"product keyword", PortInfo{Name: "/dev/ttyUSB2", Description: "CP2102N USB to UART Bridge Controller"}, true},
		{"esp32 in description", PortInfo{Name: "COM4", Description: "ESP32-C5 DevKit"}, true},
		{"silicon labs", PortInfo{Name: "COM5", Description: "Silicon Labs CP210x"}, true},
		{"macOS name", PortInfo{Name: "/dev/cu.usbserial-0001"}, false},
		{"ftdi", PortInfo{Name: "/dev/ttyUSB3", VID: "0403", PID: "6001", Description: "FT232R"}, false},
		{"builtin", PortInfo{Name: "/dev/ttyS0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProbable(tt.port); got != tt.want {
				t.Errorf("IsProbable(%+v) = %v, want %v", tt.port, got, tt.want)
			}
		})
	}
}

func TestPortInfo_Label(t *testing.T) {
	tests := []struct {
		port PortInfo
		want string
	}{
		{PortInfo{Name: "/dev/ttyS0"}, "/dev/ttyS0"},
		{PortInfo{Name: "/dev/ttyUSB0", Description: "CP2102"}, "/dev/ttyUSB0 - CP2102"},
		{PortInfo{Name: "/dev/ttyACM0", Description: "USB JTAG/serial", VID: "303A", PID: "1001"}, "/dev/ttyACM0 - USB JTAG/serial [303a:1001]"},
	}
	for _, tt := range tests {
		if got := tt.port.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestFilter(t *testing.T) {
	f, err := NewFilter([]string{"/dev/ttyUSB*", "/dev/cu.usbserial-*"})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"/dev/ttyUSB0", true},
		{"/dev/ttyUSB12", true},
		{"/dev/cu.usbserial-0001", true},
		{"/dev/ttyACM0", false},
		{"/dev/ttyUSB0/x", false}, // * does not cross /
	}
	for _, tt := range tests {
		if got := f.Match(tt.name); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	var nilFilter *Filter
	if !nilFilter.Match("/dev/anything") {
		t.Error("nil filter should match everything")
	}
	empty, _ := NewFilter(nil)
	if !empty.Match("/dev/anything") {
		t.Error("empty filter should match everything")
	}

	if _, err := NewFilter([]string{"/dev/tty[USB"}); err == nil {
		t.Error("NewFilter should reject an unclosed character class")
	}
}

func TestList(t *testing.T) {
	enum := func() ([]PortInfo, error) {
		return []PortInfo{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyUSB1", VID: "0403"},
			{Name: "/dev/ttyUSB0", VID: "10c4"},
			{Name: "/dev/ttyACM0", VID: "303a"},
		}, nil
	}

	t.Run("probable first then by name", func(t *testing.T) {
		ports, err := List(enum, nil)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		want := []string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/ttyS0", "/dev/ttyUSB1"}
		if len(ports) != len(want) {
			t.Fatalf("got %d ports, want %d", len(ports), len(want))
		}
		for i, name := range want {
			if ports[i].Name != name {
				t.Errorf("ports[%d] = %s, want %s", i, ports[i].Name, name)
			}
		}
		if !ports[0].Probable || ports[2].Probable {
			t.Error("Probable flag not set from heuristic")
		}
	})

	t.Run("filtered", func(t *testing.T) {
		f, _ := NewFilter([]string{"/dev/ttyUSB*"})
		ports, _ := List(enum, f)
		if len(ports) != 2 || ports[0].Name != "/dev/ttyUSB0" {
			t.Errorf("filtered ports = %+v", ports)
		}
	})

	t.Run("enumeration error", func(t *testing.T) {
		boom := errors.New("no sysfs")
		_, err := List(func() ([]PortInfo, error) { return nil, boom }, nil)
		if !errors.Is(err, boom) {
			t.Errorf("List error = %v, want %v", err, boom)
		}
	})

	t.Run("no ports", func(t *testing.T) {
		ports, err := List(func() ([]PortInfo, error) { return nil, nil }, nil)
		if err != nil || len(ports) != 0 {
			t.Errorf("List = %v, %v", ports, err)
		}
	})
}
