package v1

import (
	"encoding/json"
	"time"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/core/task"
)

// handlersStreamInterval is how often the availability stream re-reads
// the fleet snapshot.
const handlersStreamInterval = 3 * time.Second

// handlersFrame is the availability payload pushed to clients.
type handlersFrame struct {
	AvailableHandlers map[string]int                `json:"available_handlers"`
	Configs           map[string]task.HandlerConfig `json:"configs"`
}

// HandlersStream streams the fleet's handler availability as Server-Sent
// Events: worker counts per handler id plus the advertised configs. The
// first frame goes out immediately; after that a frame is emitted only
// when the snapshot changed.
func HandlersStream[C handler.Context](fleet Fleet) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		events := make(chan any)

		go func() {
			defer close(events)

			ticker := time.NewTicker(handlersStreamInterval)
			defer ticker.Stop()

			last := ""
			for {
				snap := fleet.Snapshot()
				payload, err := json.Marshal(handlersFrame{
					AvailableHandlers: snap.Handlers,
					Configs:           snap.Configs,
				})
				if err == nil && string(payload) != last {
					select {
					case events <- payload:
						last = string(payload)
					case <-ctx.Done():
						return
					}
				}

				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()

		return response.SSE(events, response.WithEventName("handlers"))
	}
}
