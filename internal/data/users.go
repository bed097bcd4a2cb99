package data

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// UsersQ tells whether an address belongs to a user of the application.
type UsersQ interface {
	Exists(ctx context.Context, address common.Address) (bool, error)
}
