package redis

import "strings"

const keyNamespace = "foodapp"

// Keys builds namespaced key names. Blank parts are dropped.
type Keys struct{}

func (Keys) IdempotencyKey(scope, id string) string {
	return buildKey("idempotency", scope, id)
}

func (Keys) LockKey(name string) string {
	return buildKey("lock", name)
}

func (Keys) WebhookEventKey(provider, eventID string) string {
	return buildKey("webhook", provider, eventID)
}

func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
