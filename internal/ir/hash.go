package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainNotification is the domain prefix for notification identity.
// Version suffix enables future algorithm migration.
const DomainNotification = "prodreg/notification/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NotificationID computes the content-addressed ID of a notification payload.
// The same payload always yields the same ID, across restarts and replicas.
func NotificationID(payload map[string]any) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("NotificationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNotification, canonical), nil
}
