package queue

// Store key layout. Task records live under task:{id}; every queue list
// holds bare task ids. "Right is the head": LPUSH enqueues at the tail of
// the logical queue, BRPOP pops the head.
const (
	taskKeyPrefix      = "task:"
	readyQueueKey      = "task_queue"
	pendingQueueKey    = "pending_task_queue"
	processingQueueKey = "processing_queue"
	deadLettersKey     = "dead_letters"
)

// TaskKey returns the record key for a task id.
func TaskKey(id string) string {
	return taskKeyPrefix + id
}

func readyShardKey(handlerID string) string {
	return readyQueueKey + ":" + handlerID
}

func pendingShardKey(handlerID string) string {
	return pendingQueueKey + ":" + handlerID
}
