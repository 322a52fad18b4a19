package instance

import "github.com/phuoc-stack/foodapp-backend/pkg/env"

// ID names this process in logs. FOODAPP_INSTANCE_ID wins, then DYNO on
// Heroku-style hosts, then HOSTNAME, then fallback.
func ID(fallback string) string {
	return env.First(fallback, "FOODAPP_INSTANCE_ID", "DYNO", "HOSTNAME")
}
