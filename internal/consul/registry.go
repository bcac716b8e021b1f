package consul

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// Registration describes a service instance announced to Consul
type Registration struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	// HealthURL, when set, is polled by Consul every CheckInterval
	HealthURL string
}

// Health check timing for registered services
const (
	CheckInterval = "10s"
	CheckTimeout  = "3s"
)

// ServiceRegistrar defines the interface for service registration
type ServiceRegistrar interface {
	Register(reg *Registration) error
	Deregister(serviceID string) error
}

// Register announces a service instance
func (c *Client) Register(reg *Registration) error {
	registration := &consulapi.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Address: reg.Address,
		Port:    reg.Port,
		Tags:    reg.Tags,
	}

	if reg.HealthURL != "" {
		registration.Check = &consulapi.AgentServiceCheck{
			HTTP:     reg.HealthURL,
			Interval: CheckInterval,
			Timeout:  CheckTimeout,
		}
	}

	if err := c.api.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service %s: %w", reg.ID, err)
	}
	return nil
}

// Deregister removes a service instance
func (c *Client) Deregister(serviceID string) error {
	if err := c.api.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("failed to deregister service %s: %w", serviceID, err)
	}
	return nil
}
