//go:build mage

package main

import (
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/aexvir/provision"
	"github.com/aexvir/provision/commons"
	"github.com/aexvir/provision/config"
	"github.com/aexvir/provision/gen"
	"github.com/aexvir/provision/talib"
)

var h = provision.New(
	provision.WithPreExecFunc(
		func(ctx context.Context) error { // ensure go mod download is run before any task
			return provision.Run(ctx, "go", provision.WithArgs("mod", "download"))
		},
	),
)

func gostep(name string, args ...string) provision.Step {
	return provision.Step{
		Name:     name,
		Commands: [][]string{append([]string{"go"}, args...)},
		Run: func(ctx context.Context) error {
			return provision.Run(ctx, "go", provision.WithArgs(args...))
		},
	}
}

// format codebase using gofmt
func Format(ctx context.Context) error {
	return h.Execute(
		ctx,
		provision.Step{
			Name:     "gofmt",
			Commands: [][]string{{"gofmt", "-w", "-s", "."}},
			Run: func(ctx context.Context) error {
				return provision.Run(
					ctx,
					"gofmt",
					provision.WithArgs("-w", "-s", "."),
					provision.WithErrMsg("failed to format code"),
				)
			},
		},
	)
}

// lint the code using go vet and go mod tidy
func Lint(ctx context.Context) error {
	return h.Execute(
		ctx,
		gostep("vet", "vet", "./..."),
		tidy(),
	)
}

// run unit tests
func Test(ctx context.Context) error {
	args := []string{"test", "-race", "-cover", "./..."}
	if commons.IsCIEnv() {
		args = append(args, "-json")
	}

	return h.Execute(ctx, gostep("test", args...))
}

// run go mod tidy
func Tidy(ctx context.Context) error {
	return h.Execute(ctx, tidy())
}

// write the default installation plan to install.sh
func Plan(ctx context.Context) error {
	steps, err := talib.Plan(config.Default())
	if err != nil {
		return err
	}

	return gen.WritePlan("install.sh", steps, gen.Shell)
}

// tidy errors if go mod tidy changes go.mod or go.sum
func tidy() provision.Step {
	return provision.Step{
		Name:     "tidy",
		Commands: [][]string{{"go", "mod", "tidy", "-v"}},
		Run: func(ctx context.Context) error {
			gomod, _ := os.ReadFile("go.mod")
			gosum, _ := os.ReadFile("go.sum")

			if err := provision.Run(ctx, "go", provision.WithArgs("mod", "tidy", "-v")); err != nil {
				return err
			}

			newmod, _ := os.ReadFile("go.mod")
			newsum, _ := os.ReadFile("go.sum")

			if !bytes.Equal(gomod, newmod) || !bytes.Equal(gosum, newsum) {
				return errors.New("differences found; fixed go module")
			}

			return nil
		},
	}
}
