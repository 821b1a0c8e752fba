package tasker

import "context"

type ITask interface {
	Name() string
	NewPacket() ITaskPacket
	Process(context.Context, ITaskPacket) (Result, error)
}

type ITaskPacket interface {
	Id() string
	Name() string
	TaskName() string

	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// IProgressSink observes the harness counter. Increment is called exactly
// once per finished packet, successful or not.
type IProgressSink interface {
	SetTotal(int)
	Increment()
}

type Result struct {
	// Skipped is set when the task decided there was nothing to do.
	Skipped bool
}
