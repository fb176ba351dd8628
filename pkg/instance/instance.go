package instance

import (
	"os"

	"github.com/angelmondragon/notifyd/pkg/env"
)

// GetID identifies this process in logs. It prefers an explicit id, then the
// platform dyno name, then the hostname.
func GetID(service string) string {
	if id := env.Lookup("", "NOTIFYD_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return service + "-0"
}
