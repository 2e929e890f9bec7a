package metrics

import (
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
)

// NewApplication creates a New Relic application with log forwarding enabled.
// An empty license key disables New Relic entirely, returning a nil
// application.
func NewApplication(appName, licenseKey string) (*newrelic.Application, error) {
	if len(licenseKey) == 0 {
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(appName),
		newrelic.ConfigLicense(licenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating new relic application")
	}
	return app, nil
}
