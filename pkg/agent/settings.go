package agent

import (
	"os"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/solagent/solagent-go/pkg/agent/transaction"
	"github.com/solagent/solagent-go/pkg/metrics"
)

// Settings is the file and environment based configuration used to construct
// an Agent.
type Settings struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	RpcUrl string `mapstructure:"rpc_url"`

	// PrivateKey is the base58 or JSON byte array encoded wallet key.
	PrivateKey string `mapstructure:"private_key"`

	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	Commitment          string        `mapstructure:"commitment"`
	SkipPreflight       bool          `mapstructure:"skip_preflight"`
	PriorityFee         uint64        `mapstructure:"priority_fee_micro_lamports"`

	MaxCloseInstructionsPerTx uint64 `mapstructure:"max_close_instructions_per_tx"`

	JupiterBaseUrl    string `mapstructure:"jupiter_base_url"`
	GibworkBaseUrl    string `mapstructure:"gibwork_base_url"`
	PumpPortalBaseUrl string `mapstructure:"pumpportal_base_url"`

	// Metrics are only reported with a license key
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultSettings = Settings{
	LogLevel: "info",
	AppName:  "solagent",
	RpcUrl:   "https://api.mainnet-beta.solana.com",
}

var settingsEnvBindings = map[string]string{
	"log_level":                     "LOG_LEVEL",
	"app_name":                      "APP_NAME",
	"rpc_url":                       "RPC_URL",
	"private_key":                   "SOLANA_PRIVATE_KEY",
	"confirmation_timeout":          transaction.ConfirmationTimeoutConfigEnvName,
	"commitment":                    transaction.CommitmentConfigEnvName,
	"skip_preflight":                transaction.SkipPreflightConfigEnvName,
	"priority_fee_micro_lamports":   transaction.PriorityFeeConfigEnvName,
	"max_close_instructions_per_tx": MaxCloseInstructionsPerTxConfigEnvName,
	"jupiter_base_url":              JupiterBaseUrlConfigEnvName,
	"gibwork_base_url":              GibworkBaseUrlConfigEnvName,
	"pumpportal_base_url":           PumpPortalBaseUrlConfigEnvName,
	"new_relic_license_key":         "NEW_RELIC_LICENSE_KEY",
}

// LoadSettings reads settings from the file at path, if it exists, with
// environment variables taking precedence.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	for key, envName := range settingsEnvBindings {
		if err := v.BindEnv(key, envName); err != nil {
			return nil, errors.Wrapf(err, "error binding %s", envName)
		}
	}

	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file, so a missing explicit file is handled here.
	if len(path) > 0 {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrap(err, "failed to load settings")
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to check if settings exist")
		}
	}

	settings := defaultSettings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal settings")
	}

	if len(settings.PrivateKey) == 0 {
		return nil, errors.New("private key is required")
	}
	if len(settings.RpcUrl) == 0 {
		return nil, errors.New("rpc url is required")
	}

	return &settings, nil
}

// PipelineOverrides returns the submission settings.
func (s *Settings) PipelineOverrides() transaction.Overrides {
	return transaction.Overrides{
		ConfirmationTimeout: s.ConfirmationTimeout,
		Commitment:          s.Commitment,
		SkipPreflight:       s.SkipPreflight,
		PriorityFee:         s.PriorityFee,
	}
}

// AgentOverrides returns the agent and provider settings.
func (s *Settings) AgentOverrides() Overrides {
	return Overrides{
		MaxCloseInstructionsPerTx: s.MaxCloseInstructionsPerTx,
		JupiterBaseUrl:            s.JupiterBaseUrl,
		GibworkBaseUrl:            s.GibworkBaseUrl,
		PumpPortalBaseUrl:         s.PumpPortalBaseUrl,
	}
}

// ConfigureLogging applies the log level and, when a license key is set,
// creates the New Relic application that metrics and logs are reported to.
func (s *Settings) ConfigureLogging() (*newrelic.Application, error) {
	app, err := metrics.NewApplication(s.AppName, s.NewRelicLicenseKey)
	if err != nil {
		return nil, err
	}

	logrus.SetFormatter(metrics.NewLogFormatter(app, &logrus.JSONFormatter{}))

	level, err := logrus.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", s.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	return app, nil
}
