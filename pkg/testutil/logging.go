package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Tests log at trace level so every log statement is evaluated, but output is
// only kept for verbose runs.
func init() {
	logrus.SetLevel(logrus.TraceLevel)
	if !isVerbose(os.Args) {
		logrus.StandardLogger().SetOutput(io.Discard)
	}
}

func isVerbose(args []string) bool {
	for _, arg := range args {
		if arg == "-test.v" || (strings.HasPrefix(arg, "-test.v=") && arg != "-test.v=false") {
			return true
		}
	}
	return false
}
