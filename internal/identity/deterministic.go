package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const namespace = "go-order-tracker"

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// StageUUID returns the stable identifier for a stage machine name.
func StageUUID(name string) uuid.UUID {
	return UUID(namespace + ":stage:" + strings.ToLower(strings.TrimSpace(name)))
}

// ImportedOrderUUID returns the stable identifier for an order imported from an
// external system, so re-running an import resolves to the same record.
func ImportedOrderUUID(source, externalID string) uuid.UUID {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return uuid.Nil
	}
	return UUID(namespace + ":order:" + strings.ToLower(strings.TrimSpace(source)) + ":" + externalID)
}
