package consul

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
)

// ServiceInstance represents a discovered service instance
type ServiceInstance struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
}

// URL returns the instance's base URL. Instances tagged "https" are addressed over TLS.
func (i *ServiceInstance) URL() string {
	scheme := "http"
	for _, tag := range i.Tags {
		if tag == "https" {
			scheme = "https"
			break
		}
	}
	return scheme + "://" + net.JoinHostPort(i.Address, strconv.Itoa(i.Port))
}

// ServiceDiscovery defines the interface for service discovery
type ServiceDiscovery interface {
	Discover(serviceName string) ([]*ServiceInstance, error)
	DiscoverOne(serviceName string) (*ServiceInstance, error)
}

// Discover retrieves all healthy instances of a service
func (c *Client) Discover(serviceName string) ([]*ServiceInstance, error) {
	services, _, err := c.api.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to discover service %s: %w", serviceName, err)
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no healthy instances found for service: %s", serviceName)
	}

	instances := make([]*ServiceInstance, 0, len(services))
	for _, entry := range services {
		instance := &ServiceInstance{
			ID:      entry.Service.ID,
			Name:    entry.Service.Service,
			Address: entry.Service.Address,
			Port:    entry.Service.Port,
			Tags:    entry.Service.Tags,
		}

		// Use node address if service address is empty
		if instance.Address == "" && entry.Node != nil {
			instance.Address = entry.Node.Address
		}

		instances = append(instances, instance)
	}

	return instances, nil
}

// DiscoverOne retrieves a single healthy instance at random
func (c *Client) DiscoverOne(serviceName string) (*ServiceInstance, error) {
	instances, err := c.Discover(serviceName)
	if err != nil {
		return nil, err
	}

	return instances[rand.Intn(len(instances))], nil
}

// ResolveBaseURL returns the base URL of one healthy instance of serviceName
func ResolveBaseURL(d ServiceDiscovery, serviceName string) (string, error) {
	instance, err := d.DiscoverOne(serviceName)
	if err != nil {
		return "", err
	}
	return instance.URL(), nil
}
