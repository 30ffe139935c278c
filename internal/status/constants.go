// internal/status/constants.go
package status

// Status block layout constants.
// These values define the register protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// BlockSize is the number of holding registers the block occupies.
const BlockSize = SlotDeviceNameEnd + 1

// ---- SLOT INDICES ----

// SlotHealthCode holds the engine health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last raw error code.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the engine has not been healthy.
const SlotSecondsInError = 2

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the engine name.
// The name always follows the live slots.
const SlotDeviceNameStart = 3

// SlotDeviceNameSlots is the number of slots reserved for the name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for the name.
const DeviceNameMaxChars = 16

// MaxSecondsInError is where the seconds counter saturates.
const MaxSecondsInError = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state, before the first cycle.
const HealthUnknown uint16 = 0

// HealthOK means every read of the last cycle succeeded.
const HealthOK uint16 = 1

// HealthError means every read of the last cycle failed.
const HealthError uint16 = 2

// HealthStale means some channels (or the records source) failed and the
// published values are partly carried over.
const HealthStale uint16 = 3
