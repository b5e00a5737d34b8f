package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/bookdesk/internal/mockapi"
)

func newMockServerCmd(flags *globalFlags) *cobra.Command {
	var addr, secret string

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory book API for local development",
		Long: `Starts a fake book catalog API that keeps users, books and uploads in
memory. Point the dashboard at it with --base-url.`,
		Example: `  # Terminal 1
  bookdesk mock-server --addr 127.0.0.1:5513

  # Terminal 2
  bookdesk --base-url http://127.0.0.1:5513`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.logger(cmd, "info")
			if err != nil {
				return err
			}

			opts := []mockapi.Option{mockapi.WithLogger(log)}
			if secret != "" {
				opts = append(opts, mockapi.WithSecret([]byte(secret)))
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           mockapi.New(opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				log.WithField("addr", addr).Info("mock book API listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				log.Info("shutting down mock server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-serverErr:
				return err
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5513", "listen address")
	cmd.Flags().StringVar(&secret, "jwt-secret", "", "token signing key (default random per run)")
	return cmd
}
