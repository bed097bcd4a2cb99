package config

import (
	"net/http"
	"net/url"
	"time"

	"gitlab.com/distributed_lab/figure/v3"
	jsonapi "gitlab.com/distributed_lab/json-api-connector"
	"gitlab.com/distributed_lab/logan/v3/errors"
	"gitlab.com/tokend/connectors/signed"
)

// UserGate holds the client of the application's user service. Users is nil when
// no endpoint is configured, in which case the users table is consulted instead.
type UserGate struct {
	Users *jsonapi.Connector
}

func (c *config) UserGate() UserGate {
	return c.userGateOnce.Do(func() interface{} {
		var cfg struct {
			Endpoint       *url.URL      `fig:"endpoint"`
			RequestTimeout time.Duration `fig:"request_timeout"`
		}

		raw, err := c.getter.GetStringMap("user_gate")
		if err != nil {
			panic(errors.Wrap(err, "failed to get user gate config"))
		}
		err = figure.Out(&cfg).From(raw).Please()
		if err != nil {
			panic(errors.Wrap(err, "failed to figure out user gate"))
		}

		if cfg.Endpoint == nil {
			return UserGate{}
		}
		if cfg.RequestTimeout == 0 {
			cfg.RequestTimeout = defaultRequestTimeout
		}

		return UserGate{
			Users: jsonapi.NewConnector(signed.NewClient(&http.Client{Timeout: cfg.RequestTimeout}, cfg.Endpoint)),
		}
	}).(UserGate)
}
