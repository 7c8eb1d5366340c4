package discord

import (
	"context"

	"github.com/mcoot/dotareg/internal/apiclient"
)

// NewClient returns an API client that logs the bot in on first use and
// again whenever its session expires.
func NewClient(baseURL, username, password string, opts ...apiclient.Option) *apiclient.Client {
	var c *apiclient.Client
	login := func(ctx context.Context) (string, error) {
		resp, err := c.Login(ctx, username, password)
		if err != nil {
			return "", err
		}
		return resp.SessionID, nil
	}
	c = apiclient.New(baseURL, append(opts, apiclient.WithRelogin(login))...)
	return c
}
