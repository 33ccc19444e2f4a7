// talib-setup installs the TA-Lib C library from source and its python binding.
package main

import (
	"context"
	"os"

	"github.com/aexvir/provision/cmd/talib-setup/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
