package service

import (
	"encoding/base32"
	"time"

	"github.com/google/uuid"
)

var ticketSuffixEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewTicketNumber returns TKT-YYYYMMDD-XXXXXXXX with the UTC date and eight
// random base32 characters
func NewTicketNumber(now time.Time) string {
	id := uuid.New()
	suffix := ticketSuffixEncoding.EncodeToString(id[:5])
	return "TKT-" + now.UTC().Format("20060102") + "-" + suffix
}
