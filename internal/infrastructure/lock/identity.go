package lock

import (
	"os"

	"github.com/google/uuid"
)

// HolderIdentity names this process in lock rows: hostname plus a random
// suffix, so two replicas on one host stay distinguishable.
func HolderIdentity() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()
}
