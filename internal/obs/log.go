package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// logService tags every line so log pipelines can split this service's
// traffic from co-located processes.
const logService = "staffhub-api"

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared line writer. Request logs and audit events
// share it so output stays interleaved in emit order.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits one JSON line for a completed HTTP request, tagged
// with the service name. A marshal failure degrades to a fixed error
// line rather than dropping the event.
func LogRequest(entry map[string]any) {
	if entry == nil {
		entry = map[string]any{}
	}
	entry["service"] = logService
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"ts":"error","level":"error","service":"` + logService + `","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
