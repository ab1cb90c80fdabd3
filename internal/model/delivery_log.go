// internal/model/delivery_log.go
package model

import "time"

// DeliveryStatus is the state of one sent message
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryOpened    DeliveryStatus = "opened"
	DeliveryClicked   DeliveryStatus = "clicked"
	DeliveryReplied   DeliveryStatus = "replied"
	DeliveryBounced   DeliveryStatus = "bounced"
)

// deliveryRank orders the forward-only statuses. bounced is handled apart.
var deliveryRank = map[DeliveryStatus]int{
	DeliverySent:      0,
	DeliveryDelivered: 1,
	DeliveryOpened:    2,
	DeliveryClicked:   3,
	DeliveryReplied:   3,
}

// Valid reports whether s is a known delivery status
func (s DeliveryStatus) Valid() bool {
	if s == DeliveryBounced {
		return true
	}
	_, ok := deliveryRank[s]
	return ok
}

// CanTransition reports whether an entry in status s may move to next.
// Moves are forward only; bounced is reachable from anything and leaves
// nowhere. clicked may still become replied, not the other way round.
func (s DeliveryStatus) CanTransition(next DeliveryStatus) bool {
	if s == DeliveryBounced || !next.Valid() {
		return false
	}
	if next == DeliveryBounced {
		return true
	}
	from, to := deliveryRank[s], deliveryRank[next]
	if to > from {
		return true
	}
	return s == DeliveryClicked && next == DeliveryReplied
}

type DeliveryLogEntry struct {
	ID                string         `json:"id"`
	ContactID         string         `json:"contact_id"`
	CampaignID        string         `json:"campaign_id,omitempty"`
	TemplateID        string         `json:"template_id"`
	Subject           string         `json:"subject"`
	Body              string         `json:"body"`
	Status            DeliveryStatus `json:"status"`
	SentAt            time.Time      `json:"sent_at"`
	OpenedAt          *time.Time     `json:"opened_at,omitempty"`
	RepliedAt         *time.Time     `json:"replied_at,omitempty"`
	ScheduledFor      *time.Time     `json:"scheduled_for,omitempty"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
}
