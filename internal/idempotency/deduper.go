// Package idempotency suppresses re-delivered Telegram updates. Webhook
// retries and long-poll restarts can hand the bot the same update twice;
// policy operations must fire once.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultTTL bounds how long a processed update id is remembered. Telegram
// stops re-delivering well before this.
const DefaultTTL = 24 * time.Hour

// Deduper records processed updates and reports duplicates.
type Deduper interface {
	// MarkSeen registers the key and reports whether it was already present.
	// The first caller for a key gets false; everyone after gets true.
	MarkSeen(ctx context.Context, key string) (bool, error)
}

// UpdateKey derives the dedupe key for a Telegram update.
func UpdateKey(updateID int) string {
	return fmt.Sprintf("update:%d", updateID)
}

// CallbackKey derives a dedupe key for a callback press, hashing the payload
// so credentials in callback data never appear in Redis keys.
func CallbackKey(userID int64, data string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", userID, data)))
	return "callback:" + hex.EncodeToString(sum[:8])
}
