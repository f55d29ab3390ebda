package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Network describes a ledger network the daemon can talk to
type Network struct {
	Name        string `yaml:"name"`
	HorizonURL  string `yaml:"horizon_url"`
	Passphrase  string `yaml:"passphrase"`
	NativeAsset string `yaml:"native_asset"`
}

// NetworksConfig holds all known networks
type NetworksConfig struct {
	Networks []Network `yaml:"networks"`

	byName map[string]*Network
}

// DefaultNetworks returns the built-in public and test networks
func DefaultNetworks() *NetworksConfig {
	cfg := &NetworksConfig{
		Networks: []Network{
			{
				Name:        "public",
				HorizonURL:  "https://horizon.stellar.org",
				Passphrase:  "Public Global Stellar Network ; September 2015",
				NativeAsset: "XLM",
			},
			{
				Name:        "testnet",
				HorizonURL:  "https://horizon-testnet.stellar.org",
				Passphrase:  "Test SDF Network ; September 2015",
				NativeAsset: "XLM",
			},
		},
	}
	cfg.index()
	return cfg
}

// LoadNetworksConfig loads network definitions from a YAML file
func LoadNetworksConfig(path string) (*NetworksConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read networks config file: %w", err)
	}

	var cfg NetworksConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse networks config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.index()

	return &cfg, nil
}

// Validate validates the networks configuration
func (c *NetworksConfig) Validate() error {
	if len(c.Networks) == 0 {
		return fmt.Errorf("at least one network must be configured")
	}

	seen := make(map[string]bool)
	for _, n := range c.Networks {
		if n.Name == "" {
			return fmt.Errorf("network name is required")
		}
		if n.HorizonURL == "" {
			return fmt.Errorf("horizon_url is required for network %s", n.Name)
		}
		if n.NativeAsset == "" {
			return fmt.Errorf("native_asset is required for network %s", n.Name)
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate network %s", n.Name)
		}
		seen[n.Name] = true
	}

	return nil
}

// Get returns the network with the given name
func (c *NetworksConfig) Get(name string) (*Network, bool) {
	n, ok := c.byName[name]
	return n, ok
}

func (c *NetworksConfig) index() {
	c.byName = make(map[string]*Network, len(c.Networks))
	for i := range c.Networks {
		c.byName[c.Networks[i].Name] = &c.Networks[i]
	}
}

// ResolveNetwork picks the configured network, honouring a HORIZON_URL override
func (c *Config) ResolveNetwork() (*Network, error) {
	networks := DefaultNetworks()
	if c.NetworksConfigPath != "" {
		loaded, err := LoadNetworksConfig(c.NetworksConfigPath)
		if err != nil {
			return nil, err
		}
		networks = loaded
	}

	n, ok := networks.Get(c.Network)
	if !ok {
		return nil, fmt.Errorf("unknown network %q", c.Network)
	}

	resolved := *n
	if c.HorizonURL != "" {
		resolved.HorizonURL = c.HorizonURL
	}
	return &resolved, nil
}
