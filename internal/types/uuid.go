package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier with a
// prefix, e.g. pay_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateInvoiceNumber returns a human-facing invoice number of the form
// INV-XXXXXXXX. These are what clients see on invoices and what the
// payment intent metadata carries for correlation.
func GenerateInvoiceNumber() string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}

	return "INV-" + strings.ToUpper(id)
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_INVOICE       = "inv"
	UUID_PREFIX_PAYMENT       = "pay"
	UUID_PREFIX_WEBHOOK_EVENT = "evt"
)
