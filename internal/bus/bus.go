// Package bus is a thin layer over the system D-Bus connection: it owns the
// connection and puts a deadline on every method call and property access.
package bus

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/profilectl/internal/errors"
	"github.com/godbus/dbus/v5"
)

const (
	propertiesGet = "org.freedesktop.DBus.Properties.Get"
	propertiesSet = "org.freedesktop.DBus.Properties.Set"

	DefaultTimeout = 5 * time.Second
)

// Caller is the part of dbus.BusObject this package needs.
type Caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Object is a remote object whose calls are bounded by a timeout.
type Object struct {
	caller  Caller
	timeout time.Duration
}

// Connect opens a private connection to the system bus.
func Connect() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errors.New().Wrap(ErrConnectFailed, err)
	}

	return conn, nil
}

// Dial returns the object at dest/path on conn.
func Dial(conn *dbus.Conn, dest string, path dbus.ObjectPath, timeout time.Duration) *Object {
	return NewObject(conn.Object(dest, path), timeout)
}

// NewObject wraps caller. A non-positive timeout means DefaultTimeout.
func NewObject(caller Caller, timeout time.Duration) *Object {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Object{caller: caller, timeout: timeout}
}

// Call invokes method and stores the reply body into out.
func (o *Object) Call(ctx context.Context, method string, out []interface{}, args ...interface{}) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	call := o.caller.CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errFactory.Wrap(ErrCallTimeout, fmt.Errorf("%s: %w", method, call.Err))
		}
		return errFactory.Wrap(ErrCallFailed, fmt.Errorf("%s: %w", method, call.Err))
	}

	if len(out) == 0 {
		return nil
	}

	if err := call.Store(out...); err != nil {
		return errFactory.Wrap(ErrDecodeFailed, fmt.Errorf("%s: %w", method, err))
	}

	return nil
}

// Get reads iface.prop into out, which must be a pointer.
func (o *Object) Get(ctx context.Context, iface, prop string, out interface{}) error {
	var v dbus.Variant
	if err := o.Call(ctx, propertiesGet, []interface{}{&v}, iface, prop); err != nil {
		return err
	}

	if err := dbus.Store([]interface{}{v.Value()}, out); err != nil {
		return errors.New().Wrap(ErrDecodeFailed, fmt.Errorf("%s.%s: %w", iface, prop, err))
	}

	return nil
}

// Set writes value to iface.prop.
func (o *Object) Set(ctx context.Context, iface, prop string, value interface{}) error {
	return o.Call(ctx, propertiesSet, nil, iface, prop, dbus.MakeVariant(value))
}
