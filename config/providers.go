package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v2"
)

// Feed formats.
const (
	FormatJSON  = "json"
	FormatKyero = "kyero"
)

// Transports.
const (
	TransportHTTP    = "http"
	TransportBrowser = "browser"
)

const defaultProviderTimeout = 20 * time.Second

// Provider describes one external listing feed.
type Provider struct {
	Name        string        `yaml:"name"`
	Endpoint    string        `yaml:"endpoint"`
	Format      string        `yaml:"format"`
	Transport   string        `yaml:"transport"`
	Timeout     time.Duration `yaml:"timeout"`
	RefScheme   string        `yaml:"ref_scheme"`
	RateLimitMs int           `yaml:"rate_limit_ms"`
	Credentials Credentials   `yaml:"credentials"`
}

// Credentials are optional. Type is one of basic, bearer or header.
type Credentials struct {
	Type     string `yaml:"type"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Token    string `yaml:"token"`
	Header   string `yaml:"header"`
	Value    string `yaml:"value"`
}

type providersFile struct {
	Providers []Provider `yaml:"providers"`
}

// LoadProviders reads the provider list from a YAML file. ${VAR} references
// are expanded from the environment so secrets stay out of the file.
func LoadProviders(path string) ([]Provider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read providers file %q", path)
	}
	return ParseProviders([]byte(os.ExpandEnv(string(raw))))
}

// ParseProviders decodes and validates a YAML provider list, applying
// defaults.
func ParseProviders(raw []byte) ([]Provider, error) {
	var f providersFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "config: parse providers")
	}
	if len(f.Providers) == 0 {
		return nil, eris.New("config: no providers configured")
	}

	seen := make(map[string]struct{}, len(f.Providers))
	out := make([]Provider, 0, len(f.Providers))
	for i, p := range f.Providers {
		p.Name = strings.TrimSpace(p.Name)
		p.Format = strings.ToLower(strings.TrimSpace(p.Format))
		p.Transport = strings.ToLower(strings.TrimSpace(p.Transport))
		p.Credentials.Type = strings.ToLower(strings.TrimSpace(p.Credentials.Type))

		if p.Name == "" {
			return nil, eris.Errorf("config: provider #%d has no name", i+1)
		}
		// references are "<name>:<key>", so the name itself must not hold a colon
		if strings.Contains(p.Name, ":") {
			return nil, eris.Errorf("config: provider name %q must not contain ':'", p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, eris.Errorf("config: duplicate provider name %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		u, err := url.Parse(p.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, eris.Errorf("config: provider %q has invalid endpoint %q", p.Name, p.Endpoint)
		}

		switch p.Format {
		case "":
			p.Format = FormatJSON
		case FormatJSON, FormatKyero:
		default:
			return nil, eris.Errorf("config: provider %q has unknown format %q", p.Name, p.Format)
		}

		switch p.Transport {
		case "":
			p.Transport = TransportHTTP
		case TransportHTTP, TransportBrowser:
		default:
			return nil, eris.Errorf("config: provider %q has unknown transport %q", p.Name, p.Transport)
		}

		switch p.Credentials.Type {
		case "", "basic", "bearer", "header":
		default:
			return nil, eris.Errorf("config: provider %q has unknown credentials type %q", p.Name, p.Credentials.Type)
		}

		if p.Timeout <= 0 {
			p.Timeout = defaultProviderTimeout
		}
		if strings.TrimSpace(p.RefScheme) == "" {
			p.RefScheme = p.Name
		}
		out = append(out, p)
	}
	return out, nil
}
