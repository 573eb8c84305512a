package blockloader

import (
	"fmt"
)

// Event is an object event from Cloud Storage, e.g. google.storage.object.finalize.
type Event struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
}

// FullPath returns full path of storage object beginning with gs://.
func (e *Event) FullPath() string {
	return fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name)
}
