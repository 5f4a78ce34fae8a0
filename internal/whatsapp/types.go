package whatsapp

// Meta-standard Cloud API shapes for template sends and webhook deliveries.

// SendTemplateRequest is the payload for sending a template message.
type SendTemplateRequest struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Template         *Template `json:"template,omitempty"`
}

// Template names the approved template and its substitutions.
type Template struct {
	Name       string      `json:"name"`
	Language   Language    `json:"language"`
	Components []Component `json:"components,omitempty"`
}

// Language selects the template translation.
type Language struct {
	Code string `json:"code"`
}

// Component carries the body parameter substitutions.
type Component struct {
	Type       string      `json:"type"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// Parameter is a single template variable value.
type Parameter struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// SendResponse is the response from the send message API.
type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// ErrorResponse is the Graph API error envelope.
type ErrorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// WebhookPayload is the top-level webhook delivery.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents one business account entry.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change wraps a single change notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds the status and message data.
type ChangeValue struct {
	MessagingProduct string   `json:"messaging_product"`
	Metadata         Metadata `json:"metadata"`
	Statuses         []Status `json:"statuses,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
}

// Metadata identifies the receiving phone number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Status is a message delivery status update.
type Status struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Timestamp    string        `json:"timestamp"`
	RecipientID  string        `json:"recipient_id"`
	Conversation *Conversation `json:"conversation,omitempty"`
	Pricing      *Pricing      `json:"pricing,omitempty"`
	Errors       []StatusError `json:"errors,omitempty"`
}

// Conversation identifies the 24-hour billing window a message belongs to.
type Conversation struct {
	ID     string              `json:"id"`
	Origin *ConversationOrigin `json:"origin,omitempty"`
	ExpirationTimestamp string `json:"expiration_timestamp,omitempty"`
}

// ConversationOrigin carries the conversation category.
type ConversationOrigin struct {
	Type string `json:"type"`
}

// Pricing carries the billing attributes of a status update.
type Pricing struct {
	Billable     bool   `json:"billable"`
	PricingModel string `json:"pricing_model"`
	Category     string `json:"category"`
}

// StatusError describes a failed delivery.
type StatusError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Message represents an inbound message (ignored by the reconciler).
type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}
