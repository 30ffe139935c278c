// internal/status/errcode.go
package status

import (
	"errors"

	"github.com/goburrow/modbus"
)

// ErrorCode extracts a best-effort uint16 code from an error.
// Modbus exceptions yield their exception code; errors exposing a code
// through a Code/ErrorCode method yield that. Anything else is 1 (generic).
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return uint16(me.ExceptionCode)
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 1
}
