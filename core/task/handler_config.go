package task

import "fmt"

// HandlerConfig describes a handler a worker can run. Workers publish the
// union of their configs under the handlers_configs key so the API can
// show descriptions for every handler the fleet has ever advertised.
type HandlerConfig struct {
	Name        string `json:"name" yaml:"name"`
	TaskType    string `json:"task_type" yaml:"task_type"`
	ImportPath  string `json:"import_path" yaml:"import_path"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

// HandlerID returns the queue routing key, "<task_type>:<version>".
func (c HandlerConfig) HandlerID() string {
	return fmt.Sprintf("%s:%s", c.TaskType, c.Version)
}
