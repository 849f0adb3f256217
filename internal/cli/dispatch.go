package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/tarmac-project/bindings/harness"
)

var (
	dispatchMethod string
	dispatchData   string
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <path>",
	Short: "Dispatch a single request to the worker and print the response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd.Context(), cmd.OutOrStdout(), currentConfig, &harness.Request{
			Method: dispatchMethod,
			URL:    args[0],
			Body:   []byte(dispatchData),
		})
	},
}

func init() {
	dispatchCmd.Flags().StringVarP(&dispatchMethod, "method", "X", http.MethodGet, "HTTP method")
	dispatchCmd.Flags().StringVarP(&dispatchData, "data", "d", "", "request body")
}

// dispatch prints the status line and body. Non-2xx responses are errors.
func dispatch(ctx context.Context, out io.Writer, cfg Config, req *harness.Request) error {
	if ctx == nil {
		ctx = context.Background()
	}

	h, err := newHarness(cfg)
	if err != nil {
		return err
	}

	resp, err := h.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	body, err := resp.Text()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d %s\n%s\n", resp.StatusCode, resp.Status, body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("worker responded %d", resp.StatusCode)
	}
	return nil
}
