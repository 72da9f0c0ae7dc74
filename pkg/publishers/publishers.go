package publishers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/arcanalyse/encounter-builder/internal/fileconf"
)

const (
	// Supported publisher types.
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig represents a single publisher entry declared in config files.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id"`
	Type    string                 `json:"type" yaml:"type"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
}

// HTTPPublisherConfig holds generic HTTP sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AWSCredentials optionally pins static credentials instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL       string `json:"uri" yaml:"uri"`
	Region         string `json:"region" yaml:"region"`
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	AWSCredentials `yaml:",inline"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN       string `json:"topic_arn" yaml:"topic_arn"`
	Region         string `json:"region" yaml:"region"`
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	AWSCredentials `yaml:",inline"`
}

// PubSubPublisherConfig holds Google Cloud Pub/Sub settings.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// ConfigRegistry materializes publisher definitions loaded from config files.
type ConfigRegistry struct {
	mu         sync.RWMutex
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadRegistry loads the publisher registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	var file configFile
	if err := fileconf.Load(path, "publishers", &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(file.Publishers)),
		idx:        make(map[string]PublisherConfig, len(file.Publishers)),
	}
	for i, cfg := range file.Publishers {
		cfg = sanitizePublisherConfig(cfg)
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.publishers = append(reg.publishers, cfg)
		reg.idx[cfg.ID] = cfg
	}
	return reg, nil
}

// sanitizePublisherConfig trims every field, lower-cases the type and fills
// defaults. Type blocks are copied so the caller's config is untouched.
func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	fileconf.Trim(&cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}

	if cfg.HTTP != nil {
		c := *cfg.HTTP
		fileconf.Trim(&c.URL, &c.Method)
		c.Method = strings.ToUpper(c.Method)
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		c.Headers = fileconf.Headers(c.Headers)
		cfg.HTTP = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		fileconf.Trim(&c.QueueURL, &c.Region, &c.Endpoint, &c.AccessKeyID, &c.SecretAccessKey)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		fileconf.Trim(&c.TopicARN, &c.Region, &c.Endpoint, &c.AccessKeyID, &c.SecretAccessKey)
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		fileconf.Trim(&c.ProjectID, &c.Topic, &c.CredentialsFile)
		cfg.PubSub = &c
	}
	return cfg
}

// field is a required setting, named as it appears in the file.
type field struct {
	name  string
	value string
}

// validatePublisherConfig checks that the block matching the type is
// present and carries its required settings.
func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	var (
		present  bool
		required []field
		creds    *AWSCredentials
	)
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeHTTP:
		if present = cfg.HTTP != nil; present {
			required = []field{{"url", cfg.HTTP.URL}}
		}
	case TypeSQS:
		if present = cfg.SQS != nil; present {
			required = []field{{"uri", cfg.SQS.QueueURL}, {"region", cfg.SQS.Region}}
			creds = &cfg.SQS.AWSCredentials
		}
	case TypeSNS:
		if present = cfg.SNS != nil; present {
			required = []field{{"topic_arn", cfg.SNS.TopicARN}, {"region", cfg.SNS.Region}}
			creds = &cfg.SNS.AWSCredentials
		}
	case TypePubSub:
		if present = cfg.PubSub != nil; present {
			required = []field{{"project_id", cfg.PubSub.ProjectID}, {"topic", cfg.PubSub.Topic}}
		}
	default:
		// Unknown types are rejected when the publisher is built.
		return nil
	}

	if !present {
		return fmt.Errorf("%s config required for publisher %q", cfg.Type, cfg.ID)
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%s.%s is required for publisher %q", cfg.Type, f.name, cfg.ID)
		}
	}
	if creds != nil && (creds.AccessKeyID == "") != (creds.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", cfg.Type, cfg.Type, cfg.ID)
	}
	return nil
}

// ByID returns the publisher config for the given id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured publishers.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]PublisherConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}
