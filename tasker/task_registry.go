package tasker

import (
	"fmt"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/errs"
)

type taskRegistry struct {
	tasks []ITask
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{
		tasks: make([]ITask, 0),
	}
}

func (obj *taskRegistry) addTask(task ITask) error {
	if _, err := obj.findTask(task.Name()); err == nil {
		return elements.NewStackError(fmt.Errorf("%w| task name %s", ErrTaskAlreadyRegistered, task.Name()))
	}
	obj.tasks = append(obj.tasks, task)
	return nil
}

func (obj *taskRegistry) findTask(name string) (ITask, error) {

	for _, t := range obj.tasks {
		if t.Name() == name {
			return t, nil
		}
	}

	return nil, elements.NewStackError(fmt.Errorf("%w| task name %s", ErrTaskNotFoundInRegistry, name))

}

// buildTaskPacket restores a marshaled packet for the named task.
func (obj *taskRegistry) buildTaskPacket(name string, data []byte) (ITaskPacket, error) {

	t, err := obj.findTask(name)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	packet := t.NewPacket()
	err = packet.Unmarshal(data)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	return packet, nil

}
