package models

import "time"

// Channel identifies the medium an inbound message arrived on.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSocial   Channel = "social"
	ChannelWeb      Channel = "web"
)

// Valid returns true if the channel is a known value.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelSocial, ChannelWeb:
		return true
	default:
		return false
	}
}

// InboundMessage is the contract consumed from channel adapters.
type InboundMessage struct {
	// ID is the adapter-assigned message identifier.
	ID string `json:"id"`
	// Channel is the medium the message arrived on.
	Channel Channel `json:"channel"`
	// From is the sender address (email, phone number, handle).
	From string `json:"from"`
	// FromName is the sender's display name, if the channel provides one.
	FromName string `json:"from_name,omitempty"`
	// Subject is the message subject, if the channel has one.
	Subject string `json:"subject,omitempty"`
	// Body is the message text.
	Body string `json:"body"`
	// Timestamp is when the message was received by the adapter.
	Timestamp time.Time `json:"timestamp"`
	// PropertyID links the message to a property, if the adapter resolved one.
	PropertyID string `json:"property_id,omitempty"`
	// ContactID links the message to a known contact, if resolved.
	ContactID string `json:"contact_id,omitempty"`
	// ConversationID groups messages belonging to one thread.
	ConversationID string `json:"conversation_id,omitempty"`
}

// MessageKind is the classifier's category for an inbound message.
type MessageKind string

const (
	MessageKindInquiry           MessageKind = "inquiry"
	MessageKindMaintenanceReport MessageKind = "maintenance_report"
	MessageKindLead              MessageKind = "lead"
	MessageKindOffer             MessageKind = "offer"
	MessageKindComplaint         MessageKind = "complaint"
	MessageKindGeneral           MessageKind = "general"
)

// Valid returns true if the message kind is a known value.
func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindInquiry, MessageKindMaintenanceReport, MessageKindLead,
		MessageKindOffer, MessageKindComplaint, MessageKindGeneral:
		return true
	default:
		return false
	}
}

// RoutingDecision is the classifier's output for an inbound message.
type RoutingDecision struct {
	// MessageKind is the classifier's category for the message.
	MessageKind MessageKind `json:"message_kind"`
	// AssignTo is the worker the message should be routed to.
	AssignTo WorkerID `json:"assign_to"`
	// Priority is the suggested dispatch priority.
	Priority Priority `json:"priority"`
	// Reasoning is the classifier's explanation. Audit only.
	Reasoning string `json:"reasoning,omitempty"`
	// Confidence is the classifier's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// SuggestedTaskKind is the task kind the router should create.
	SuggestedTaskKind TaskKind `json:"suggested_task_kind"`
}
