package identity

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// User represents a registered account holder. Address is the ledger account
// the platform operates on the user's behalf.
type User struct {
	ID           string
	Phone        string
	Tier         string
	PINHash      []byte
	DeviceID     string
	Address      common.Address
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials request structure.
type Credentials struct {
	Phone    string
	PIN      string
	DeviceID string
}
