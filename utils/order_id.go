package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderID returns a unique ledger reference such as
// YF-20261015-7-3F2A9C1B04D8E6A1.
func GenerateOrderID(userID uint) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("YF-%s-%d-%s", time.Now().UTC().Format("20060102"), userID, id[:16])
}
