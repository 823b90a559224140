package globals

import (
	"bufio"
	"context"
	"errors"
	"io"

	"stravatools/lib/platforms/strava"
	"stravatools/lib/telemetry"
)

type keyType int

const key keyType = 0

// Value is shared by every command of one invocation, the interactive shell
// keeps it alive across the commands it runs.
type Value struct {
	// Stdin is the raw input, used to turn echo off for passwords.
	Stdin io.Reader
	// In buffers Stdin, every prompt and the shell read through it.
	In *bufio.Reader

	Session   *strava.Session
	Telemetry telemetry.Telemetry
	// Remember is the default answer to the "remember session" prompt.
	Remember bool
}

func New(stdin io.Reader) *Value {
	return &Value{
		Stdin: stdin,
		In:    bufio.NewReader(stdin),
	}
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key, value)
}

func Get(ctx context.Context) *Value {
	value, _ := ctx.Value(key).(*Value)
	return value
}

// Close saves and closes the session if one was opened, then flushes
// telemetry.
func (v *Value) Close(ctx context.Context) error {
	var errs []error
	if v.Session != nil {
		errs = append(errs, v.Session.Close(ctx))
		v.Session = nil
	}
	errs = append(errs, v.Telemetry.Shutdown(ctx))
	v.Telemetry = telemetry.Telemetry{}
	return errors.Join(errs...)
}
