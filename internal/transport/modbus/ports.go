// internal/transport/modbus/ports.go
package modbus

import (
	"sort"

	"go.bug.st/serial"
)

// Ports lists serial devices usable as an RTU endpoint.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	sort.Strings(ports)
	return ports, nil
}
