package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

// seedFile is the on-disk shape of a provider seed file. Operators use it to
// bootstrap the provider table on a fresh install; the admin surface owns all
// later edits.
type seedFile struct {
	Providers []seedProvider `yaml:"providers"`
}

type seedProvider struct {
	Name      string   `yaml:"name"`
	Modality  string   `yaml:"modality"`
	Adapter   string   `yaml:"adapter"`
	Enabled   bool     `yaml:"enabled"`
	Priority  int      `yaml:"priority"`
	Models    []string `yaml:"models"`
	Endpoint  string   `yaml:"endpoint"`
	APIKey    string   `yaml:"api_key"`
	SecretKey string   `yaml:"secret_key"`
	RateLimit int      `yaml:"rate_limit"`
}

// LoadSeedFile parses a YAML provider seed file into provider configurations.
func LoadSeedFile(path string) ([]domain.ProviderConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	configs := make([]domain.ProviderConfig, 0, len(file.Providers))
	for i, p := range file.Providers {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("seed provider %d: name is required", i)
		}
		modality := domain.Modality(strings.ToLower(strings.TrimSpace(p.Modality)))
		switch modality {
		case domain.ModalityImage, domain.ModalityVideo, domain.ModalityAssistant:
		default:
			return nil, fmt.Errorf("seed provider %q: unknown modality %q", name, p.Modality)
		}
		configs = append(configs, domain.ProviderConfig{
			Name:        name,
			Modality:    modality,
			AdapterKind: domain.AdapterKind(strings.ToLower(strings.TrimSpace(p.Adapter))),
			Enabled:     p.Enabled,
			Priority:    p.Priority,
			Models:      p.Models,
			Endpoint:    strings.TrimSpace(p.Endpoint),
			APIKey:      strings.TrimSpace(p.APIKey),
			SecretKey:   strings.TrimSpace(p.SecretKey),
			RateLimit:   p.RateLimit,
		})
	}
	return configs, nil
}
