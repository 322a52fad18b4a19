// Package metrics holds the Prometheus collectors exported by the api and
// cron-worker binaries.
package metrics

const namespace = "foodapp"

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
