package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/kanbeads/internal/config"
	"github.com/steveyegge/kanbeads/internal/debug"
	"github.com/steveyegge/kanbeads/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "setup",
	Short:   "Serve the configured store over HTTP",
	Long: `Serve the configured store over HTTP so other kb instances can use it
with remote.backend=http and remote.url=http://<host><addr>.`,
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = config.GetString("server.addr")
		}
		rs := config.GetRemoteSettings()
		if rs.Backend == config.BackendHTTP {
			FatalErrorWithHint("cannot serve an http backend", "Set remote.backend to mem, file, redis or mysql")
		}
		store, err := openStore(rootCtx, rs)
		if err != nil {
			FatalError("%v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				WarnError("closing store: %v", err)
			}
		}()

		srv := server.New(store, logger)
		errc := make(chan error, 1)
		go func() { errc <- srv.Start(addr) }()
		debug.PrintNormal("Serving %s store on %s\n", rs.Backend, addr)

		select {
		case err := <-errc:
			if err != nil {
				_ = store.Close()
				FatalError("%v", err)
			}
		case <-rootCtx.Done():
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				WarnError("shutdown: %v", err)
			}
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default: server.addr)")
	rootCmd.AddCommand(serveCmd)
}
