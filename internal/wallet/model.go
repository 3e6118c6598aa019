package wallet

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Wallet binds an owner to the ledger account the custodian operates for them.
type Wallet struct {
	ID        string
	OwnerID   string
	Account   common.Address
	Status    string
	CreatedAt time.Time
}

// Overview is a point-in-time view of the value held for a wallet.
type Overview struct {
	WalletID  string
	Account   common.Address
	Native    *uint256.Int
	Deposited *uint256.Int
	Wrapped   *uint256.Int
	AsOf      time.Time
}
