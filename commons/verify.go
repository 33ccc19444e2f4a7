package commons

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aexvir/provision"
)

// SmokeScript imports the binding and computes a simple moving average over random data.
// It fails if the binding can't load the native library.
const SmokeScript = `import numpy
import talib

close = numpy.random.random(100)
output = talib.SMA(close, timeperiod=10)
print(output)
`

// VerifyArtifacts checks every artifact exists below prefix.
func VerifyArtifacts(prefix string, artifacts []string) provision.Step {
	commands := make([][]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		commands = append(commands, []string{"test", "-e", filepath.Join(prefix, artifact)})
	}

	return provision.Step{
		Name:        "verify-library",
		Commands:    commands,
		Description: fmt.Sprintf("check the library is installed under %s", prefix),
		Run: func(_ context.Context) error {
			provision.LogStep(fmt.Sprintf("checking installed files under %s", prefix))

			var missing []string
			for _, artifact := range artifacts {
				target := filepath.Join(prefix, artifact)
				if _, err := os.Stat(target); err != nil {
					provision.LogWarn(fmt.Sprintf("%s: %s", target, err))
					missing = append(missing, artifact)
					continue
				}
				provision.LogDetail(target)
			}

			if len(missing) > 0 {
				return fmt.Errorf("missing files under %s: %s", prefix, strings.Join(missing, ", "))
			}

			return nil
		},
	}
}

// VerifyBinding runs [SmokeScript] with the python interpreter.
func VerifyBinding(python string, opts ...StepOpt) provision.Step {
	conf := newconf(opts)

	argv := []string{python, "-c", SmokeScript}

	return provision.Step{
		Name:     "verify-binding",
		Commands: [][]string{argv},
		Run: func(ctx context.Context) error {
			if python == "" {
				return errors.New("no python interpreter configured")
			}
			if err := conf.run(ctx, "", false, argv); err != nil {
				return fmt.Errorf("binding smoke test failed: %w", err)
			}
			return nil
		},
	}
}
