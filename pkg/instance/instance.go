package instance

import "os"

const fallbackID = "local"

// GetID identifies this process in logs: GOMARKET_INSTANCE_ID, then the
// platform DYNO name, then the hostname.
func GetID() string {
	for _, key := range []string{"GOMARKET_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
