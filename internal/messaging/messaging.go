// Package messaging delivers broadcast messages to the outbound channel gateways.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/volcanowatch/backend/internal/domain"
)

// Envelope is the wire payload consumed by the channel gateways
type Envelope struct {
	ID      string         `json:"id"`
	Channel domain.Channel `json:"channel"`
	Message string         `json:"message"`
	RuleID  string         `json:"rule_id,omitempty"`
	SentAt  time.Time      `json:"sent_at"`
}

// Encode builds the JSON payload of msg for one channel
func Encode(channel domain.Channel, msg domain.BroadcastMessage) ([]byte, error) {
	payload, err := json.Marshal(Envelope{
		ID:      msg.ID,
		Channel: channel,
		Message: msg.Message,
		RuleID:  msg.RuleID,
		SentAt:  msg.SentAt,
	})
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to marshal envelope: %w", err)
	}
	return payload, nil
}
