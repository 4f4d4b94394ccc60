package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Scope represents the domain an idempotency key belongs to
type Scope string

const (
	// ScopePayment keys reconciliation: one key per
	// (invoice, payment intent) pair regardless of how the
	// reconciliation was triggered.
	ScopePayment Scope = "payment"
	// ScopeWebhook keys replay-cache entries for inbound webhook
	// deliveries.
	ScopeWebhook Scope = "webhook"
)

// Generator generates deterministic idempotency keys
type Generator interface {
	GenerateKey(scope Scope, params map[string]interface{}) string
}

type generator struct{}

func NewGenerator() Generator {
	return &generator{}
}

// GenerateKey hashes the scope together with the sorted params so the
// same inputs always yield the same key, in any map iteration order.
func (g *generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(scope))
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("|%s=%v", k, params[k]))
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
