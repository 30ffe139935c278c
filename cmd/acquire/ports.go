// cmd/acquire/ports.go
package main

import (
	"fmt"

	tmodbus "github.com/tamzrod/modbus-acquire/internal/transport/modbus"
)

type PortsCommand struct{}

func (c *PortsCommand) Execute([]string) error {
	ports, err := tmodbus.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
