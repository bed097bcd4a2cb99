package postgres

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const usersTable = "users"

type usersQ struct {
	db *pgdb.DB
}

// NewUsersQ checks membership against the application's users table. The table is
// owned and migrated by the application; only a text "address" column is read.
func NewUsersQ(db *pgdb.DB) data.UsersQ {
	return &usersQ{db: db}
}

func (q *usersQ) Exists(ctx context.Context, address common.Address) (bool, error) {
	var count int64
	stmt := squirrel.Select("COUNT(*)").From(usersTable).
		Where(squirrel.Expr("lower(address) = ?", strings.ToLower(address.Hex())))

	err := q.db.GetContext(ctx, &count, stmt)
	return count > 0, errors.Wrap(err, "failed to check user existence")
}
