package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Swapica/twap-indexer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	jsonapi "gitlab.com/distributed_lab/json-api-connector"
	"gitlab.com/distributed_lab/json-api-connector/cerrors"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

var notFound = errors.New("not found")

type userResponse struct {
	Data struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"data"`
}

type usersQ struct {
	users *jsonapi.Connector
}

// NewUsersQ asks the application's user service whether an address is registered.
func NewUsersQ(users *jsonapi.Connector) data.UsersQ {
	return &usersQ{users: users}
}

func (q *usersQ) Exists(_ context.Context, address common.Address) (bool, error) {
	u, err := url.Parse("users/" + address.Hex())
	if err != nil {
		return false, errors.Wrap(err, "failed to parse url")
	}

	var user userResponse
	err = q.users.Get(u, &user)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to get user", logan.F{"address": address.Hex()})
	}

	return strings.EqualFold(user.Data.ID, address.Hex()), nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	err = errors.Cause(err)
	if c, ok := err.(cerrors.Error); ok {
		return c.Status() == http.StatusNotFound
	}
	return err.Error() == notFound.Error()
}
