package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/policy"
)

// DedupKey computes the canonical SHA-256 key that identifies a create
// request for idempotency purposes. Evidence order never changes the key:
// items are sorted by their canonical form before hashing. CollectedAt is
// deliberately excluded so a retry carrying a fresh collection timestamp
// still deduplicates.
func DedupKey(organizationID string, step catalog.Step, policyVersion string, evidence []policy.EvidenceReference) string {
	items := make([]string, 0, len(evidence))
	for _, item := range evidence {
		items = append(items, fmt.Sprintf("%s|%s|%s|%s",
			item.EvidenceType, item.ReferenceID, item.VerificationStatus, item.DataHash))
	}
	sort.Strings(items)

	var b strings.Builder
	b.WriteString(organizationID)
	b.WriteByte('\n')
	b.WriteString(string(step))
	b.WriteByte('\n')
	b.WriteString(policyVersion)
	b.WriteByte('\n')
	b.WriteString(strings.Join(items, "\n"))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
