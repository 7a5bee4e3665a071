package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier.
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier with a
// prefix, e.g. sub_0ujsswThIGTUYm2K8FjOOfXtY1K.
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

// GenerateShortID returns a short, panel-style identifier used to build
// public subscription-import URLs.
func GenerateShortID() string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(id, "-", "")
}

const (
	UUIDPrefixUser             = "user"
	UUIDPrefixSubscription     = "sub"
	UUIDPrefixServer           = "srv"
	UUIDPrefixTransaction      = "txn"
	UUIDPrefixPayment          = "pay"
	UUIDPrefixPromoGroup       = "pg"
	UUIDPrefixCheckoutDraft    = "draft"
	UUIDPrefixEvent            = "evt"
	UUIDPrefixReceipt          = "rcpt"
	UUIDPrefixPanelUser        = "pnl"
	UUIDPrefixNotificationLock = "notif"
)
