package instrument

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedResult marks a void export that returned a value.
var ErrUnexpectedResult = errors.New("unexpected export result")

// VoidResult interprets the value returned by an export whose contract is
// void. frida places a raised exception's message in the value slot of the
// rpc reply, so a string is the remote error and any other non-nil value
// breaks the contract.
func VoidResult(export string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case error:
		return v
	case string:
		msg := strings.TrimSpace(v)
		if msg == "" {
			msg = "export raised without a message"
		}
		return errors.New(msg)
	default:
		return fmt.Errorf("%w: %s returned %T %v", ErrUnexpectedResult, export, value, value)
	}
}
