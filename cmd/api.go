package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request against the Web API through the
// resilient executor.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path argument is required", shared.ErrMissingArgument)
	}
	pretty := !cmd.Bool("json")

	r.logger.Info("GET request", "path", path)

	resp, err := r.executor.Do(ctx, services.RequestSpec{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
