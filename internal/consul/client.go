// Package consul locates the notice-board API through HashiCorp Consul. The dev server
// registers itself; the CLI resolves its base URL from a healthy instance when no
// API_BASE_URL is configured.
package consul

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// Client wraps the Consul API client
type Client struct {
	api *consulapi.Client
}

// NewClient creates a Consul client. token is the ACL token and may be empty.
func NewClient(addr, token string) (*Client, error) {
	config := consulapi.DefaultConfig()
	config.Address = addr
	if token != "" {
		config.Token = token
	}

	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &Client{api: client}, nil
}
