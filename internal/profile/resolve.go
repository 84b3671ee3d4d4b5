package profile

import "github.com/promeg/multichannel/internal/config"

const DefaultName = "main"

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. MULTICHANNEL_PROFILE or config.toml default_profile
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.LoadWithEnv(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}

// Settings is the resolved per-profile configuration.
type Settings struct {
	Archive            string
	KeepCarriageReturn bool
}

// Load resolves the settings for profile. archiveFlag, when set, wins over config.
func Load(name, archiveFlag string) (Settings, error) {
	cfg, err := config.LoadWithEnv(ConfigPath())
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		Archive:            cfg.ArchiveFor(name),
		KeepCarriageReturn: cfg.KeepCarriageReturn,
	}
	if archiveFlag != "" {
		s.Archive = archiveFlag
	}
	return s, nil
}
