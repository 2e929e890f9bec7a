package agent

import (
	"github.com/solagent/solagent-go/pkg/config"
	"github.com/solagent/solagent-go/pkg/config/env"
	"github.com/solagent/solagent-go/pkg/config/memory"
	"github.com/solagent/solagent-go/pkg/config/wrapper"
	"github.com/solagent/solagent-go/pkg/gibwork"
	"github.com/solagent/solagent-go/pkg/jupiter"
	"github.com/solagent/solagent-go/pkg/pumpportal"
)

const (
	envConfigPrefix = "AGENT_"

	MaxCloseInstructionsPerTxConfigEnvName = envConfigPrefix + "MAX_CLOSE_INSTRUCTIONS_PER_TX"
	defaultMaxCloseInstructionsPerTx       = 40

	AirdropAmountConfigEnvName = envConfigPrefix + "AIRDROP_LAMPORTS"
	defaultAirdropAmount       = 5_000_000_000

	JupiterBaseUrlConfigEnvName = "JUPITER_BASE_URL"
	defaultJupiterBaseUrl       = jupiter.DefaultApiBaseUrl

	JupiterStakeBaseUrlConfigEnvName = "JUPITER_STAKE_BASE_URL"
	defaultJupiterStakeBaseUrl       = jupiter.DefaultStakeBaseUrl

	GibworkBaseUrlConfigEnvName = "GIBWORK_BASE_URL"
	defaultGibworkBaseUrl       = gibwork.DefaultApiBaseUrl

	PumpPortalBaseUrlConfigEnvName = "PUMPPORTAL_BASE_URL"
	defaultPumpPortalBaseUrl       = pumpportal.DefaultApiBaseUrl

	PumpIpfsBaseUrlConfigEnvName = "PUMP_IPFS_BASE_URL"
	defaultPumpIpfsBaseUrl       = pumpportal.DefaultIpfsBaseUrl
)

type conf struct {
	maxCloseInstructionsPerTx config.Uint64
	airdropAmount             config.Uint64

	jupiterBaseUrl      config.String
	jupiterStakeBaseUrl config.String
	gibworkBaseUrl      config.String
	pumpPortalBaseUrl   config.String
	pumpIpfsBaseUrl     config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			maxCloseInstructionsPerTx: env.NewUint64Config(MaxCloseInstructionsPerTxConfigEnvName, defaultMaxCloseInstructionsPerTx),
			airdropAmount:             env.NewUint64Config(AirdropAmountConfigEnvName, defaultAirdropAmount),

			jupiterBaseUrl:      env.NewStringConfig(JupiterBaseUrlConfigEnvName, defaultJupiterBaseUrl),
			jupiterStakeBaseUrl: env.NewStringConfig(JupiterStakeBaseUrlConfigEnvName, defaultJupiterStakeBaseUrl),
			gibworkBaseUrl:      env.NewStringConfig(GibworkBaseUrlConfigEnvName, defaultGibworkBaseUrl),
			pumpPortalBaseUrl:   env.NewStringConfig(PumpPortalBaseUrlConfigEnvName, defaultPumpPortalBaseUrl),
			pumpIpfsBaseUrl:     env.NewStringConfig(PumpIpfsBaseUrlConfigEnvName, defaultPumpIpfsBaseUrl),
		}
	}
}

// Overrides are static agent settings. Zero values keep the defaults.
type Overrides struct {
	MaxCloseInstructionsPerTx uint64
	AirdropAmount             uint64

	JupiterBaseUrl      string
	JupiterStakeBaseUrl string
	GibworkBaseUrl      string
	PumpPortalBaseUrl   string
	PumpIpfsBaseUrl     string
}

// WithOverrides returns configuration with fixed values.
func WithOverrides(o Overrides) ConfigProvider {
	uint64Config := func(value, defaultValue uint64) config.Uint64 {
		if value == 0 {
			return wrapper.NewUint64Config(memory.NewConfig(nil), defaultValue)
		}
		return wrapper.NewUint64Config(memory.NewConfig(value), defaultValue)
	}
	stringConfig := func(value, defaultValue string) config.String {
		if len(value) == 0 {
			return wrapper.NewStringConfig(memory.NewConfig(nil), defaultValue)
		}
		return wrapper.NewStringConfig(memory.NewConfig(value), defaultValue)
	}

	return func() *conf {
		return &conf{
			maxCloseInstructionsPerTx: uint64Config(o.MaxCloseInstructionsPerTx, defaultMaxCloseInstructionsPerTx),
			airdropAmount:             uint64Config(o.AirdropAmount, defaultAirdropAmount),

			jupiterBaseUrl:      stringConfig(o.JupiterBaseUrl, defaultJupiterBaseUrl),
			jupiterStakeBaseUrl: stringConfig(o.JupiterStakeBaseUrl, defaultJupiterStakeBaseUrl),
			gibworkBaseUrl:      stringConfig(o.GibworkBaseUrl, defaultGibworkBaseUrl),
			pumpPortalBaseUrl:   stringConfig(o.PumpPortalBaseUrl, defaultPumpPortalBaseUrl),
			pumpIpfsBaseUrl:     stringConfig(o.PumpIpfsBaseUrl, defaultPumpIpfsBaseUrl),
		}
	}
}
