// Package app holds worker lifecycle pieces: startup bootstrap and the
// background reconciler.
package app

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

//go:embed defaults.yaml
var defaultScoreConfigYAML []byte

type scoreConfigFile struct {
	Weights domain.Weights `yaml:"weights"`
	MustCap struct {
		Enabled bool `yaml:"enabled"`
		Value   int  `yaml:"value"`
	} `yaml:"must_cap"`
	NiceTopN     int                           `yaml:"nice_top_n"`
	RoleDistance map[string]map[string]float64 `yaml:"role_distance"`
}

// EnsureScoreConfig installs the embedded default configuration when the
// score_config table is empty, so the score stage never runs unconfigured.
// An existing configuration of any version is left alone.
func EnsureScoreConfig(ctx context.Context, repo domain.ScoreConfigRepository) error {
	_, err := repo.Latest(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrConfigMissing) {
		return fmt.Errorf("op=app.EnsureScoreConfig: %w", err)
	}

	cfg, err := defaultScoreConfig()
	if err != nil {
		return err
	}
	version, err := repo.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("op=app.EnsureScoreConfig: %w", err)
	}
	slog.Info("installed default score config", slog.Int("version", version))
	return nil
}

func defaultScoreConfig() (domain.ScoreConfig, error) {
	var f scoreConfigFile
	if err := yaml.Unmarshal(defaultScoreConfigYAML, &f); err != nil {
		return domain.ScoreConfig{}, fmt.Errorf("op=app.defaultScoreConfig: %w", err)
	}
	return domain.ScoreConfig{
		Weights:        f.Weights,
		MustCapEnabled: f.MustCap.Enabled,
		MustCapValue:   f.MustCap.Value,
		NiceTopN:       f.NiceTopN,
		RoleDistance:   f.RoleDistance,
	}, nil
}
