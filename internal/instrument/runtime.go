package instrument

import "context"

// TargetProcess identifies the process selected for attachment.
type TargetProcess struct {
	PID  int
	Name string
}

// Runtime is an explicitly constructed instrumentation runtime bound to one
// device. Callers own it and must Close it when the run ends.
type Runtime interface {
	Version() string
	DeviceName() string
	EnumerateProcesses(ctx context.Context) ([]TargetProcess, error)
	Attach(ctx context.Context, pid int) (RemoteSession, error)
	Close() error
}

// RemoteSession is an attachment to a single process.
type RemoteSession interface {
	CreateScript(source string) (RemoteScript, error)
	Detach() error
}

// RemoteScript is a script compiled inside the target process. OnMessage must
// be called before Load for early messages to be delivered.
type RemoteScript interface {
	OnMessage(handler func(raw string, data []byte))
	Load() error
	Unload() error
	Call(export string, args ...any) (any, error)
}
