package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	referencePrefix = "RSV-"

	// referenceSuffixLength hex digits are 40 bits, all taken from the random part of a v4 or v7 id.
	referenceSuffixLength = 10
)

// newReference derives the human reference code RSV-YYYYMMDD-XXXXXXXXXX from the creation day and
// the random tail of the reservation id.
func newReference(id uuid.UUID, createdAt time.Time) string {
	hex := strings.ReplaceAll(id.String(), "-", "")

	return referencePrefix + createdAt.UTC().Format("20060102") + "-" + strings.ToUpper(hex[len(hex)-referenceSuffixLength:])
}
