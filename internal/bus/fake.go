package bus

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
)

// FakeCall records one invocation against a FakeObject.
type FakeCall struct {
	Method string
	Args   []interface{}
}

// FakeObject is an in-memory Caller. Properties are keyed "iface.prop".
// Methods not in Handlers fail with an UnknownMethod D-Bus error.
type FakeObject struct {
	mu       sync.Mutex
	Props    map[string]interface{}
	Handlers map[string]func(args []interface{}) ([]interface{}, error)
	// Block makes every call wait for its context to expire.
	Block bool
	calls []FakeCall
}

func NewFakeObject() *FakeObject {
	return &FakeObject{
		Props:    make(map[string]interface{}),
		Handlers: make(map[string]func(args []interface{}) ([]interface{}, error)),
	}
}

func (f *FakeObject) CallWithContext(ctx context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Method: method, Args: args})
	block := f.Block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return &dbus.Call{Method: method, Args: args, Err: ctx.Err()}
	}

	body, err := f.dispatch(method, args)

	return &dbus.Call{Method: method, Args: args, Body: body, Err: err}
}

func (f *FakeObject) dispatch(method string, args []interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case propertiesGet:
		key := args[0].(string) + "." + args[1].(string)
		v, ok := f.Props[key]
		if !ok {
			return nil, dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownProperty", Body: []interface{}{key}}
		}
		return []interface{}{dbus.MakeVariant(v)}, nil
	case propertiesSet:
		key := args[0].(string) + "." + args[1].(string)
		if h, ok := f.Handlers[propertiesSet]; ok {
			if _, err := h(args); err != nil {
				return nil, err
			}
		}
		f.Props[key] = args[2].(dbus.Variant).Value()
		return nil, nil
	}

	h, ok := f.Handlers[method]
	if !ok {
		return nil, dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownMethod", Body: []interface{}{method}}
	}

	return h(args)
}

// Calls returns the recorded invocations of method, or all when empty.
func (f *FakeObject) Calls(method string) []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []FakeCall
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}

	return out
}
