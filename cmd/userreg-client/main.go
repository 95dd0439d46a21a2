// Command userreg-client is an interactive terminal front end for the
// registration service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aloks98/userreg/client"
	"github.com/aloks98/userreg/internal/app"
	"github.com/aloks98/userreg/internal/cli"
	"github.com/aloks98/userreg/registration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:], os.LookupEnv); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out, logW io.Writer, args []string, lookup func(string) (string, bool)) error {
	cfg, shouldExit, err := cli.ParseClient(args, out, lookup)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, logW)
	slog.SetDefault(logger)

	c, err := client.New(cfg.BaseURL, client.WithTimeout(cfg.Timeout), client.WithLogger(logger))
	if err != nil {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}

	ctrl := registration.NewController(c, registration.WithLogger(logger))
	return newREPL(ctrl, in, out).Run(ctx)
}
