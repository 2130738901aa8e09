package server

import (
	"log"

	"TimeBounce/internal/sim"
)

type AppConfig struct {
	SimConfigPath string
	Overrides     SimOverrides
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		SimConfigPath: "configs/sim.yaml",
	}
}

func resolveSimConfig(cfg AppConfig) (sim.Config, error) {
	base := sim.DefaultConfig()
	loaded, err := loadSimConfigFromFile(cfg.SimConfigPath, base)
	if err != nil {
		log.Printf("sim config: %v (using defaults)", err)
	} else {
		base = loaded
	}
	base = cfg.Overrides.apply(base)
	if err := base.Validate(); err != nil {
		return base, err
	}
	return base, nil
}

// StartApp resolves the simulation parameters and serves viewers until the
// listener fails.
func StartApp(addr string, cfg AppConfig) error {
	simCfg, err := resolveSimConfig(cfg)
	if err != nil {
		return err
	}
	hub := NewHub(simCfg)

	log.Printf("starting bounce server on %s (gravity %.1f, damping %.2f, substep %.4fs, history %.1fs)",
		addr, simCfg.Gravity, simCfg.BounceDamping, simCfg.SubstepDt, simCfg.HistoryKeepS)
	return startServer(hub, addr)
}
