package domain

import "errors"

var (
	// ErrSubscriptionNotFound is returned when a subscription id has no row
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrDeliveryNotFound is returned when a delivery id has no attempt rows
	ErrDeliveryNotFound = errors.New("delivery not found")

	// ErrSignatureRequired is returned when a subscription has a secret key
	// but the inbound request carries no signature header
	ErrSignatureRequired = errors.New("signature required")

	// ErrInvalidSignature is returned when the provided signature does not
	// match the payload
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPayload is returned when the inbound body is not a JSON object
	ErrInvalidPayload = errors.New("payload must be a JSON object")
)
