// Package config loads and validates deepwiki's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/deepwiki/internal/errors"
	"git.home.luguber.info/inful/deepwiki/internal/generator"
)

// Config is the application configuration.
type Config struct {
	Repository RepositoryConfig `yaml:"repository"`
	Citations  CitationsConfig  `yaml:"citations"`
	Output     OutputConfig     `yaml:"output"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Synthesis  SynthesisConfig  `yaml:"synthesis"`
	Site       SiteConfig       `yaml:"site"`
	Guards     GuardsConfig     `yaml:"guards"`
	Watch      WatchConfig      `yaml:"watch"`
}

// RepositoryConfig locates the source repository and optionally overrides
// remote detection.
type RepositoryConfig struct {
	Path   string `yaml:"path"`
	URL    string `yaml:"url,omitempty"`
	Branch string `yaml:"branch,omitempty"`
}

// CitationsConfig selects the citation format. Empty means auto: linked when
// a remote resolves, otherwise a fatal precondition error.
type CitationsConfig struct {
	Format string `yaml:"format,omitempty"` // "", "local", "linked"
}

// OutputConfig controls artifact placement.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	EventsDB string `yaml:"events_db,omitempty"` // sqlite path; empty disables the event store
}

// GeneratorConfig selects the content-generator transport.
type GeneratorConfig struct {
	Type string               `yaml:"type"` // "nats" or "stub"
	NATS generator.NATSConfig `yaml:"nats,omitempty"`
}

// SynthesisConfig bounds the parallel page-synthesis stage.
type SynthesisConfig struct {
	Parallelism int `yaml:"parallelism"`
}

// SiteConfig names the generated wiki.
type SiteConfig struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary,omitempty"`
}

// GuardsConfig toggles guard-file emission.
type GuardsConfig struct {
	Agents bool `yaml:"agents"`
	Claude bool `yaml:"claude"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Interval time.Duration `yaml:"interval,omitempty"` // 0 disables scheduled runs
}

// Load reads the configuration file, expanding ${VAR} references after
// loading a .env file when one is present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // absent .env is fine

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.ConfigNotFound(configPath)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Repository.Path == "" {
		c.Repository.Path = "."
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./wiki"
	}
	if c.Generator.Type == "" {
		c.Generator.Type = "nats"
	}
	if c.Generator.NATS.Subject == "" {
		c.Generator.NATS.Subject = "deepwiki.generate"
	}
	if c.Synthesis.Parallelism <= 0 {
		c.Synthesis.Parallelism = 4
	}
	if c.Site.Title == "" {
		c.Site.Title = "Project Wiki"
	}
	if c.Site.Summary == "" {
		c.Site.Summary = "Generated documentation wiki for this repository."
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 2 * time.Second
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Citations.Format {
	case "", "local", "linked":
	default:
		return errors.ValidationFailed("citations.format", "must be local or linked")
	}
	switch c.Generator.Type {
	case "nats", "stub":
	default:
		return errors.ValidationFailed("generator.type", "must be nats or stub")
	}
	if c.Synthesis.Parallelism > 64 {
		return errors.ValidationFailed("synthesis.parallelism", "unreasonably high")
	}
	return nil
}

const initTemplate = `# deepwiki configuration
repository:
  path: .
  # url: https://github.com/org/repo   # override remote detection
  # branch: main

citations:
  format: ""   # auto; "local" for path:line only, "linked" for remote URLs

output:
  dir: ./wiki
  # events_db: ./deepwiki-events.db

generator:
  type: nats
  nats:
    url: nats://localhost:4222
    subject: deepwiki.generate

synthesis:
  parallelism: 4

site:
  title: Project Wiki

guards:
  agents: true
  claude: true
`

// Init writes a starter configuration file. An existing file is only
// replaced when force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	return os.WriteFile(configPath, []byte(initTemplate), 0o644)
}
