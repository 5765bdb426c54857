package hub

import "github.com/KafClaw/thoughthub/internal/config"

func configIdentity(id, name string) config.IdentityConfig {
	return config.IdentityConfig{AgentID: id, AgentName: name}
}
