package bootstrap

import (
	"github.com/kbukum/reactivekit/config"
)

// Config is the constraint for service config types. A struct embedding
// config.ServiceConfig gets GetServiceConfig through promotion and supplies
// its own ApplyDefaults and Validate covering its sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
