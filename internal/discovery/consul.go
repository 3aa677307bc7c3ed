// Package discovery registers services with a Consul agent.
package discovery

import (
	"fmt"

	"github.com/hashicorp/consul/api"
)

type Registration struct {
	ID        string
	Name      string
	Host      string
	Port      int
	Tags      []string
	HealthURL string
}

type Consul struct {
	client *api.Client
}

func NewConsul(addr string) (*Consul, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	c, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	return &Consul{client: c}, nil
}

// Register adds the service with an HTTP health check; Consul drops it
// after a minute of failing checks.
func (c *Consul) Register(reg Registration) error {
	svc := &api.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Address: reg.Host,
		Port:    reg.Port,
		Tags:    reg.Tags,
	}
	if reg.HealthURL != "" {
		svc.Check = &api.AgentServiceCheck{
			HTTP:                           reg.HealthURL,
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		}
	}

	if err := c.client.Agent().ServiceRegister(svc); err != nil {
		return fmt.Errorf("register %s: %w", reg.ID, err)
	}
	return nil
}

func (c *Consul) Deregister(id string) error {
	if err := c.client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("deregister %s: %w", id, err)
	}
	return nil
}
