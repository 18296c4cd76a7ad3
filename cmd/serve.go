package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cozy/cozy-cloudfiles/web"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   `Starts the HTTP server`,
	Long:    `Starts the HTTP server of the file service. It stops gracefully on SIGINT and SIGTERM.`,
	PreRunE: prepareServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := net.JoinHostPort(viper.GetString("host"), strconv.Itoa(viper.GetInt("port")))
		e := web.Router()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logrus.Infof("Listening on %s", addr)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logrus.Info("Shutting down the server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("host", "localhost", "address the server listens on")
	flags.Int("port", 8087, "port the server listens on")
	checkNoErr(viper.BindPFlag("host", flags.Lookup("host")))
	checkNoErr(viper.BindPFlag("port", flags.Lookup("port")))
}
