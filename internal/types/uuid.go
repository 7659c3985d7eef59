package types

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix, ex run_01J8X9K2M4N5P6Q7R8S9T0V1W2
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const UUID_PREFIX_RUN = "run"

// GenerateQAEmail builds a unique throwaway address for a generated QA user.
// The test id is embedded so backend-side records can be traced to a case.
func GenerateQAEmail(testID, domain string) string {
	id := strings.ToLower(strings.ReplaceAll(testID, " ", "_"))
	return fmt.Sprintf("qa_%s_%s@%s", id, strings.ToLower(GenerateUUID()), domain)
}
