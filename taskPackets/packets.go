package taskpackets

import (
	"encoding/json"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/csv2parquet/tasker"
)

const (
	FileConversionTaskName = "file-conversion-task"
)

type ConversionTaskPacket struct {
	Task elements.ConversionTask
}

func NewConversionTaskPackets(tasks []elements.ConversionTask) []tasker.ITaskPacket {
	packets := make([]tasker.ITaskPacket, len(tasks))
	for i, task := range tasks {
		packets[i] = &ConversionTaskPacket{Task: task}
	}
	return packets
}

func (obj *ConversionTaskPacket) Id() string       { return obj.Task.InputPath }
func (obj *ConversionTaskPacket) Name() string     { return "file-conversion-task-packet" }
func (obj *ConversionTaskPacket) TaskName() string { return FileConversionTaskName }
func (obj *ConversionTaskPacket) Marshal() ([]byte, error) {
	return json.Marshal(obj)
}
func (obj *ConversionTaskPacket) Unmarshal(d []byte) error {
	return json.Unmarshal(d, obj)
}
