package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"go.bug.st/serial"
)

// Port is an open connection to the controller.
type Port interface {
	io.Writer
	io.Closer
}

// Opener acquires a fresh Port for one Send.
type Opener interface {
	Open(ctx context.Context) (Port, error)
}

// SerialOpener opens a local serial device.
type SerialOpener struct {
	Device   string
	BaudRate int
}

// Open opens the device in 8N1 mode.
func (o SerialOpener) Open(ctx context.Context) (Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	port, err := serial.Open(o.Device, &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", o.Device, err)
	}
	return port, nil
}

// TCPOpener dials a serial-over-TCP bridge.
type TCPOpener struct {
	Address string
}

// Open dials Address within ctx.
func (o TCPOpener) Open(ctx context.Context) (Port, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", o.Address)
	if err != nil {
		return nil, fmt.Errorf("dialling %s: %w", o.Address, err)
	}
	return conn, nil
}

// ParseAddress builds an Opener for a transport.address value.
func ParseAddress(address string, baudRate int) (Opener, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("empty transport address")
	}

	if !strings.Contains(address, "://") {
		return SerialOpener{Device: address, BaudRate: baudRate}, nil
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "serial":
		device := u.Path
		if u.Host != "" {
			device = u.Host + u.Path // serial://COM3
		}
		if device == "" {
			return nil, fmt.Errorf("serial URL %q has no device", address)
		}
		return SerialOpener{Device: device, BaudRate: baudRate}, nil
	case "tcp":
		if u.Host == "" {
			return nil, fmt.Errorf("tcp URL %q has no host", address)
		}
		if _, _, err := net.SplitHostPort(u.Host); err != nil {
			return nil, fmt.Errorf("tcp URL %q: %w", address, err)
		}
		return TCPOpener{Address: u.Host}, nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q (use serial or tcp)", u.Scheme)
	}
}
