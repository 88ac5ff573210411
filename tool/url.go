package tool

import (
	"fmt"
	"net/url"
	"strings"
)

// BatchStartPrefix is the deep-link payload prefix that marks a batch retrieval.
const BatchStartPrefix = "batch_"

// BuildBatchLink builds the deep link that opens the bot with the batch payload.
func BuildBatchLink(botUsername, batchId string) string {
	u := url.URL{
		Scheme:   "https",
		Host:     "t.me",
		Path:     "/" + strings.TrimPrefix(botUsername, "@"),
		RawQuery: fmt.Sprintf("start=%s%s", BatchStartPrefix, batchId),
	}
	return u.String()
}

// ParseBatchPayload extracts the batch id from a /start payload.
func ParseBatchPayload(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, BatchStartPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(payload, BatchStartPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}
