package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tunview/tunview/internal/tunnel"
)

// Catalog is the parsed tunview configuration: the ssh hosts a tunnel may
// ride over and the named forward targets.
//
//	[[ssh_hosts]]
//	name = "miniserver.local"       # a HostName from ssh_config
//	description = "Local network connection."
//
//	[[targets]]
//	name = "analytics-db"
//	local_address = "127.0.0.1"
//	local_port = 5432
//	remote_address = "172.18.0.2"
//	remote_port = 5432
//	description = "Analytics DB server."
//
// Targets may forward a unix socket instead, via local_sock/remote_sock.
type Catalog struct {
	SSHHosts []Host   `toml:"ssh_hosts"`
	Targets  []Target `toml:"targets"`
}

type Host struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

type Target struct {
	Name          string `toml:"name"`
	LocalAddress  string `toml:"local_address"`
	LocalPort     int    `toml:"local_port"`
	RemoteAddress string `toml:"remote_address"`
	RemotePort    int    `toml:"remote_port"`
	LocalSock     string `toml:"local_sock"`
	RemoteSock    string `toml:"remote_sock"`
	Description   string `toml:"description"`
}

const EnvConfigPath = "TUNVIEW_CONFIG"

// DefaultPath returns the catalog location used when no --config flag is
// given: $TUNVIEW_CONFIG, then ~/.config/tunview/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tunview", "config.toml"), nil
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes a catalog from TOML text.
func Parse(text string) (*Catalog, error) {
	var catalog Catalog
	if _, err := toml.Decode(text, &catalog); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for _, target := range catalog.Targets {
		if err := validateTarget(target); err != nil {
			return nil, err
		}
	}

	return &catalog, nil
}

func validateTarget(t Target) error {
	if t.Name == "" {
		return fmt.Errorf("config: target without a name")
	}

	hasSock := t.LocalSock != "" || t.RemoteSock != ""
	hasTCP := t.LocalAddress != "" || t.LocalPort != 0 || t.RemoteAddress != "" || t.RemotePort != 0

	if hasSock && hasTCP {
		return fmt.Errorf("config: target %q mixes socket and address/port forwarding", t.Name)
	}
	if hasSock && (t.LocalSock == "" || t.RemoteSock == "") {
		return fmt.Errorf("config: target %q needs both local_sock and remote_sock", t.Name)
	}
	return nil
}

// Overrides carries the CLI flag values that replace catalog fields for a
// single run. Zero values mean "keep the catalog's value".
type Overrides struct {
	LocalAddress  string
	LocalPort     int
	RemoteAddress string
	RemotePort    int
	LocalSock     string
	RemoteSock    string
	Verbose       string
}

// Resolve builds the tunnel spec for the named host and target, applying
// flag overrides on top of the catalog entry.
func (c *Catalog) Resolve(host, target string, overrides Overrides) (tunnel.Spec, error) {
	if _, ok := c.findHost(host); !ok {
		return tunnel.Spec{}, fmt.Errorf("unknown ssh host %q", host)
	}

	entry, ok := c.findTarget(target)
	if !ok {
		return tunnel.Spec{}, fmt.Errorf("unknown target %q", target)
	}

	if overrides.LocalAddress != "" {
		entry.LocalAddress = overrides.LocalAddress
	}
	if overrides.LocalPort != 0 {
		entry.LocalPort = overrides.LocalPort
	}
	if overrides.RemoteAddress != "" {
		entry.RemoteAddress = overrides.RemoteAddress
	}
	if overrides.RemotePort != 0 {
		entry.RemotePort = overrides.RemotePort
	}
	if overrides.LocalSock != "" {
		entry.LocalSock = overrides.LocalSock
	}
	if overrides.RemoteSock != "" {
		entry.RemoteSock = overrides.RemoteSock
	}

	if err := validateTarget(entry); err != nil {
		return tunnel.Spec{}, err
	}

	spec := tunnel.Spec{
		SSHHost:       host,
		TargetName:    entry.Name,
		LocalAddress:  entry.LocalAddress,
		LocalPort:     entry.LocalPort,
		RemoteAddress: entry.RemoteAddress,
		RemotePort:    entry.RemotePort,
		LocalSocket:   entry.LocalSock,
		RemoteSocket:  entry.RemoteSock,
		Description:   entry.Description,
		Verbose:       overrides.Verbose,
	}

	if !spec.IsSocket() && spec.Local() == "" {
		return tunnel.Spec{}, fmt.Errorf("target %q has no local endpoint: set local_address and local_port", target)
	}

	return spec, nil
}

func (c *Catalog) findHost(name string) (Host, bool) {
	for _, h := range c.SSHHosts {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}

func (c *Catalog) findTarget(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// HostCompletions returns shell completion candidates ("name\tdescription")
// for ssh hosts matching prefix.
func (c *Catalog) HostCompletions(prefix string) []string {
	var out []string
	for _, h := range c.SSHHosts {
		if strings.HasPrefix(h.Name, prefix) {
			out = append(out, completion(h.Name, h.Description))
		}
	}
	return out
}

// TargetCompletions returns shell completion candidates for targets
// matching prefix.
func (c *Catalog) TargetCompletions(prefix string) []string {
	var out []string
	for _, t := range c.Targets {
		if strings.HasPrefix(t.Name, prefix) {
			out = append(out, completion(t.Name, t.Description))
		}
	}
	return out
}

func completion(name, description string) string {
	if description == "" {
		description = "..."
	}
	return name + "\t" + description
}
