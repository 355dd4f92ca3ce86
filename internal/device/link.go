// Package device talks to a DLPC350 controller over an abstract command link.
//
// A Link carries one request and its reply at a time. Session layers typed
// commands, connection state and metrics on top of it. The bundled simulator
// implements Link in memory and is what tests and the "sim" driver use.
package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/smazurov/lcrnode/internal/logging"
)

// USB identifiers of the LightCrafter 4500 HID interface.
const (
	VendorID  = 0x0451
	ProductID = 0x6401
)

// Request is a single command sent to the controller. Args carry the
// command's numeric parameters; Data carries raw payload bytes (mailbox
// writes). Read requests ask the controller to report the register instead.
type Request struct {
	Command Command
	Read    bool
	Args    []uint32
	Data    []byte
}

// Reply is the controller's answer. A negative Status means the command
// was not accepted.
type Reply struct {
	Status int
	Values []uint32
	Data   []byte
}

// Link is the transport to one controller.
type Link interface {
	Open(ctx context.Context) error
	Close() error
	Exchange(ctx context.Context, req Request) (Reply, error)
}

// Driver names accepted by Open.
const (
	DriverSimulator = "sim"
	DriverUSB       = "usb"
)

// NewLink returns the link for the named driver.
func NewLink(driver string, logger logging.Logger) (Link, error) {
	switch strings.ToLower(driver) {
	case DriverSimulator, "simulator", "":
		if logger != nil {
			logger.Info("Using simulated DLPC350 link")
		}
		return NewSimulator(), nil

	case DriverUSB:
		return nil, &Error{
			Code:    ErrCodeDeviceNotFound,
			Message: fmt.Sprintf("no HID transport available for %04x:%04x", VendorID, ProductID),
		}

	default:
		return nil, &Error{
			Code:    ErrCodeDeviceNotFound,
			Message: fmt.Sprintf("unknown device driver %q", driver),
		}
	}
}
