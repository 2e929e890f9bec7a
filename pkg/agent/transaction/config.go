package transaction

import (
	"time"

	"github.com/solagent/solagent-go/pkg/config"
	"github.com/solagent/solagent-go/pkg/config/env"
	"github.com/solagent/solagent-go/pkg/config/memory"
	"github.com/solagent/solagent-go/pkg/config/wrapper"
)

const (
	envConfigPrefix = "AGENT_"

	ConfirmationTimeoutConfigEnvName = envConfigPrefix + "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = time.Minute

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	SkipPreflightConfigEnvName = envConfigPrefix + "SKIP_PREFLIGHT"
	defaultSkipPreflight       = false

	PriorityFeeConfigEnvName = envConfigPrefix + "PRIORITY_FEE_MICRO_LAMPORTS"
	defaultPriorityFee       = 0
)

type conf struct {
	confirmationTimeout config.Duration
	commitment          config.String
	skipPreflight       config.Bool
	priorityFee         config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationTimeout: env.NewDurationConfig(ConfirmationTimeoutConfigEnvName, defaultConfirmationTimeout),
			commitment:          env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			skipPreflight:       env.NewBoolConfig(SkipPreflightConfigEnvName, defaultSkipPreflight),
			priorityFee:         env.NewUint64Config(PriorityFeeConfigEnvName, defaultPriorityFee),
		}
	}
}

// Overrides are static pipeline settings, typically sourced from a settings
// file. Zero values keep the defaults.
type Overrides struct {
	ConfirmationTimeout time.Duration
	Commitment          string
	SkipPreflight       bool
	PriorityFee         uint64
}

// WithOverrides returns configuration with fixed values.
func WithOverrides(o Overrides) ConfigProvider {
	return func() *conf {
		c := &conf{
			confirmationTimeout: wrapper.NewDurationConfig(memory.NewConfig(nil), defaultConfirmationTimeout),
			commitment:          wrapper.NewStringConfig(memory.NewConfig(nil), defaultCommitment),
			skipPreflight:       wrapper.NewBoolConfig(memory.NewConfig(o.SkipPreflight), defaultSkipPreflight),
			priorityFee:         wrapper.NewUint64Config(memory.NewConfig(o.PriorityFee), defaultPriorityFee),
		}
		if o.ConfirmationTimeout > 0 {
			c.confirmationTimeout = wrapper.NewDurationConfig(memory.NewConfig(o.ConfirmationTimeout), defaultConfirmationTimeout)
		}
		if len(o.Commitment) > 0 {
			c.commitment = wrapper.NewStringConfig(memory.NewConfig(o.Commitment), defaultCommitment)
		}
		return c
	}
}
