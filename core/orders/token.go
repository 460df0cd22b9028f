package orders

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// orderIDBytes yields 60-character URL-safe tokens.
const orderIDBytes = 45

// NewOrderID returns an unguessable identifier for a new order.
func NewOrderID() (string, error) {
	b := make([]byte, orderIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating order id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
