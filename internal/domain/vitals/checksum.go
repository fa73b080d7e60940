package vitals

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Checksum digests the canonical representation of a reading. Offline
// clients compute the same digest before upload so the server can
// verify integrity without trusting the transport.
func Checksum(patientID uuid.UUID, vitalType string, value float64, recordedAt time.Time) string {
	data := patientID.String() + vitalType + strconv.FormatFloat(value, 'g', -1, 64) + recordedAt.UTC().Format(time.RFC3339)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
