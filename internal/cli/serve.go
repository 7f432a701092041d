package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/roomplan/internal/auth"
	"github.com/mistakeknot/roomplan/internal/booking"
	httpapi "github.com/mistakeknot/roomplan/internal/http"
	"github.com/mistakeknot/roomplan/internal/server"
	"github.com/mistakeknot/roomplan/internal/storage/sqlite"
	"github.com/mistakeknot/roomplan/internal/ws"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation API with the lifecycle promoter and queue reaper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			promoteInterval, err := cfg.promoteInterval()
			if err != nil {
				return err
			}
			reapInterval, err := cfg.reapInterval()
			if err != nil {
				return err
			}
			grace, err := cfg.graceWindow()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			st, err := sqlite.New(cfg.dbPath())
			if err != nil {
				return err
			}
			store := sqlite.NewResilient(st)
			defer store.Close()

			keysPath := cfg.KeysFile
			if keysPath == "" {
				keysPath = auth.ResolveKeysPath()
			}
			keyring, err := auth.LoadKeyring(keysPath)
			if err != nil {
				return err
			}

			hub := ws.NewHub()
			mgr := booking.NewManager(store).WithBroadcaster(hub)
			svc := httpapi.NewService(mgr)
			router := httpapi.NewRouter(svc, hub.Handler(), auth.Middleware(keyring))

			promoter := booking.NewPromoter(mgr, promoteInterval)
			promoter.Start(ctx)
			defer promoter.Stop()

			reaper := booking.NewReaper(mgr, reapInterval, grace)
			reaper.Start(ctx)
			defer reaper.Stop()

			srv, err := server.New(server.Config{Addr: cfg.addr(), SocketPath: cfg.SocketPath, Handler: router})
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Printf("serve: shutdown: %v", err)
				}
			}()

			log.Printf("serve: listening on %s", cfg.addr())
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", ResolveConfigPath(), "path to the yaml config file")
	return cmd
}
