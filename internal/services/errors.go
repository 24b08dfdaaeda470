package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTargetNotFound       = errors.New("target process not found")
	ErrAttach               = errors.New("attach failed")
	ErrScriptLoad           = errors.New("script load failed")
	ErrRemoteCall           = errors.New("remote call failed")
	ErrUnsupportedExtension = errors.New("unsupported extension")
	ErrFileNotFound         = errors.New("file does not exist")
	ErrNotAFile             = errors.New("not a file")
	ErrPublish              = errors.New("publish failed")
	ErrDirectoryResolution  = errors.New("cannot resolve directory")
	ErrConfiguration        = errors.New("configuration error")
	ErrTimeout              = errors.New("timeout")
	ErrLocked               = errors.New("another run holds the lock")
	errUnclassified         = errors.New("service failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = errUnclassified
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a user-actionable next step for classified errors, or an empty
// string when there is nothing more useful to say than the error itself.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTargetNotFound):
		return "start the target application first, then run again"
	case errors.Is(err, ErrAttach):
		return "make sure the target is still running and that you have permission to attach (try an elevated shell)"
	case errors.Is(err, ErrScriptLoad):
		return "check instrument.script_path and that the script is compatible with the running application"
	case errors.Is(err, ErrUnsupportedExtension):
		return "only files listed in the [[extensions]] table can be converted"
	case errors.Is(err, ErrLocked):
		return "wait for the other run to finish"
	case errors.Is(err, ErrConfiguration):
		return "run 'qmunlock config validate' to inspect the configuration"
	default:
		return ""
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
