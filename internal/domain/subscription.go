package domain

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Subscription represents a registered webhook endpoint. Deliveries addressed
// to it are authenticated with SecretKey (when set) and filtered by EventTypes.
type Subscription struct {
	ID         string    `json:"id"`
	TargetURL  string    `json:"target_url"`
	SecretKey  string    `json:"secret_key,omitempty"`
	EventTypes []string  `json:"event_types"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Snapshot returns the cacheable view of the subscription: the fields the
// delivery path needs, nothing else.
func (s *Subscription) Snapshot() *SubscriptionSnapshot {
	return &SubscriptionSnapshot{
		ID:         s.ID,
		TargetURL:  s.TargetURL,
		SecretKey:  s.SecretKey,
		EventTypes: s.EventTypes,
		IsActive:   s.IsActive,
	}
}

// SubscriptionSnapshot is the cached copy of a subscription used by the
// delivery engine. It deliberately omits timestamps so cached entries stay
// byte-stable across reads.
type SubscriptionSnapshot struct {
	ID         string   `json:"id"`
	TargetURL  string   `json:"target_url"`
	SecretKey  string   `json:"secret_key,omitempty"`
	EventTypes []string `json:"event_types"`
	IsActive   bool     `json:"is_active"`
}

// SubscriptionRepository defines the interface for subscription data access
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context, limit, offset int) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id string) error
}

// EventTypeMatches reports whether a delivery with the given event type
// should be sent to a subscription filtering on subscribed types.
// An empty filter accepts everything; a non-empty filter rejects deliveries
// that carry no event type at all.
func EventTypeMatches(eventType string, subscribed []string) bool {
	if len(subscribed) == 0 {
		return true
	}
	if eventType == "" {
		return false
	}
	for _, t := range subscribed {
		if t == eventType {
			return true
		}
	}
	return false
}

// ValidateTargetURL checks that a target URL is an absolute http(s) URL.
func ValidateTargetURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("target_url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid target_url: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("target_url must use http or https scheme")
	}

	if parsed.Host == "" {
		return fmt.Errorf("target_url must have a host")
	}

	return nil
}

// CreateSubscriptionRequest defines the request to register a subscription
type CreateSubscriptionRequest struct {
	TargetURL  string   `json:"target_url"`
	SecretKey  string   `json:"secret_key,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// Validate validates the create request and returns the subscription to persist
func (r *CreateSubscriptionRequest) Validate() (*Subscription, error) {
	if err := ValidateTargetURL(r.TargetURL); err != nil {
		return nil, err
	}

	return &Subscription{
		TargetURL:  r.TargetURL,
		SecretKey:  r.SecretKey,
		EventTypes: r.EventTypes,
		IsActive:   true,
	}, nil
}

// UpdateSubscriptionRequest defines a partial update. Nil fields are left
// untouched.
type UpdateSubscriptionRequest struct {
	TargetURL  *string   `json:"target_url,omitempty"`
	SecretKey  *string   `json:"secret_key,omitempty"`
	EventTypes *[]string `json:"event_types,omitempty"`
	IsActive   *bool     `json:"is_active,omitempty"`
}

// Validate checks the fields that are present
func (r *UpdateSubscriptionRequest) Validate() error {
	if r.TargetURL != nil {
		if err := ValidateTargetURL(*r.TargetURL); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the present fields onto the subscription
func (r *UpdateSubscriptionRequest) Apply(sub *Subscription) {
	if r.TargetURL != nil {
		sub.TargetURL = *r.TargetURL
	}
	if r.SecretKey != nil {
		sub.SecretKey = *r.SecretKey
	}
	if r.EventTypes != nil {
		sub.EventTypes = *r.EventTypes
	}
	if r.IsActive != nil {
		sub.IsActive = *r.IsActive
	}
}
