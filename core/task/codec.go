package task

import (
	"encoding/json"
	"errors"
)

// MarshalJSON emits the stored wire form, including the derived
// task_type and task_type_version fields readers outside this package
// expect to see. Decoding ignores them: handler_id is the source of truth.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	return json.Marshal(struct {
		plain
		TaskType        string `json:"task_type"`
		TaskTypeVersion string `json:"task_type_version"`
	}{plain(t), t.TaskType(), t.TaskTypeVersion()})
}

// Encode serializes the task to its stored JSON form.
func Encode(t Task) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, errors.Join(ErrInvalidRecord, err)
	}
	return data, nil
}

// Decode parses a stored record and validates it. Derived and unknown
// fields in the payload are tolerated and discarded, so records written
// by newer builds still decode.
func Decode(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, errors.Join(ErrInvalidRecord, err)
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}
