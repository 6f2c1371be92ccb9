package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

// HashVersion is bumped whenever the fingerprint input changes. v1 joined the parts
// with "|" and let titles containing the separator collide.
const HashVersion = "v2"

// RowHash fingerprints a row's natural key. Whitespace and case differences in the
// title or SKU never change the result. Each part is length prefixed, so no choice of
// title and SKU can produce the input of another pair.
func RowHash(p domain.Period, title, sku string) string {
	var b strings.Builder
	b.WriteString(HashVersion)
	for _, part := range []string{p.Key(), keyPart(title), keyPart(sku)} {
		fmt.Fprintf(&b, "|%d:%s", len(part), part)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func keyPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// displayText trims and collapses internal whitespace without changing case
func displayText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
