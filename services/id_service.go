package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9+/]+$`)

// IDService derives identifiers deterministically: UUIDv5 over a namespace
// held in Secrets Manager, base64-encoded and truncated to a fixed length.
// The same (namespace, seed) pair always yields the same ID, which is what
// makes re-authentication idempotent without a lookup table.
type IDService struct {
	namespace uuid.UUID
	length    int
}

// NewIDService fetches the namespace UUID once and validates it.
func NewIDService(ctx context.Context, secrets *SecretsService, namespaceSecretARN string, length int) (*IDService, error) {
	raw, err := secrets.GetSecret(ctx, namespaceSecretARN)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch UUID namespace: %w", err)
	}
	namespace, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("UUID namespace secret is not a valid UUID: %w", err)
	}
	return &IDService{namespace: namespace, length: length}, nil
}

// NewIDServiceWithNamespace constructs the service from an already-known
// namespace.
func NewIDServiceWithNamespace(namespace uuid.UUID, length int) *IDService {
	return &IDService{namespace: namespace, length: length}
}

// DeriveID maps a seed string such as "telegram:123456789" or
// "<userId>:<slotIndex>" to a fixed-length ID.
func (is *IDService) DeriveID(seed string) string {
	derived := uuid.NewSHA1(is.namespace, []byte(seed))
	encoded := base64.StdEncoding.EncodeToString(derived[:])
	encoded = strings.TrimRight(encoded, "=")
	return encoded[:is.length]
}

// AllocateIDs derives the full fixed-size pool of child IDs for an owner,
// one per slot index. Index order is the allocation order.
func (is *IDService) AllocateIDs(ownerID string, count int) []string {
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, is.DeriveID(fmt.Sprintf("%s:%d", ownerID, i)))
	}
	return ids
}

// ValidateID is the gate every externally supplied ID passes before it is
// used in key construction: exact configured length, base64 charset only.
func (is *IDService) ValidateID(id string) bool {
	if len(id) != is.length {
		return false
	}
	return idPattern.MatchString(id)
}
