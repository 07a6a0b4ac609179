package service

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

// SystemActor is the acting user recorded for scheduled maintenance work such
// as the retention sweep.
const SystemActor = "system"

// tracer instruments the service layer; without a configured SDK it is a no-op.
var tracer = otel.Tracer("filevault/internal/service")

// newObjectKey generates a fresh, never-reused storage key for a content blob.
func newObjectKey() string {
	return "files/" + uuid.New().String()
}

// logWarn emits one JSON warn line to stdout. Used for failures that must not
// fail the operation that triggered them (quota confirm drift, activity
// recording, orphaned blobs).
func logWarn(msg string, fields map[string]any) {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "warn",
		"msg":   msg,
	}
	for k, v := range fields {
		entry[k] = v
	}
	if b, err := json.Marshal(entry); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
