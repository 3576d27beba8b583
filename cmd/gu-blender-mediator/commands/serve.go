package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/prekucki/gu-blender-mediator/internal/config"
	"github.com/prekucki/gu-blender-mediator/internal/hubsdk"
	"github.com/prekucki/gu-blender-mediator/internal/marketplace"
	"github.com/prekucki/gu-blender-mediator/internal/mediator"
	"github.com/prekucki/gu-blender-mediator/internal/sessiongateway"
	"github.com/prekucki/gu-blender-mediator/internal/workman"
	"github.com/prekucki/gu-blender-mediator/internal/xlog"
)

var (
	serveGwURL      string
	serveDavURL     string
	serveListenPort uint16
	serveLocal      bool
	serveDocker     bool
)

// ServeCmd runs the mediator: a default hub session and gateway bound
// directly to --gw/--dav, plus the admin HTTP surface for spawning
// additional per-session gateways. Grounded on
// teranos-QNTX/cmd/qntx/commands/server.go's signal-driven graceful
// shutdown shape.
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the mediator's default gateway and admin surface",
	RunE:    runServe,
}

func init() {
	ServeCmd.Flags().StringVar(&serveGwURL, "gw", "", "marketplace (gateway) base URL for the default session")
	ServeCmd.Flags().StringVar(&serveDavURL, "dav", "", "WebDAV base URL for the default session")
	ServeCmd.Flags().Uint16Var(&serveListenPort, "listen-port", 0, "admin HTTP surface port (0 uses the config/default value)")
	ServeCmd.Flags().BoolVar(&serveLocal, "local", false, "skip registration with the local golem-unlimited service directory")
	ServeCmd.Flags().BoolVar(&serveDocker, "docker", false, "run the default session's peers in docker-mode Blender images")
}

// hubPeerLister adapts hubsdk.Client's context-taking ListPeers to the
// parameterless workman.PeerLister shape used by the process-wide WorkMan.
type hubPeerLister struct {
	hub *hubsdk.Client
}

func (h hubPeerLister) ListPeers() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.hub.ListPeers(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	id, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if serveGwURL != "" {
		id.GatewayURL = serveGwURL
	}
	if serveDavURL != "" {
		id.DavURL = serveDavURL
	}
	if serveListenPort != 0 {
		id.ListenPort = serveListenPort
	}
	if id.GatewayURL == "" || id.DavURL == "" {
		return fmt.Errorf("both --gw and --dav (or their config-file equivalents) are required")
	}

	log := xlog.Get("serve")

	printStartupBanner(id)

	hub := hubsdk.New(config.DefaultHubURL, nil)
	wm := workman.New(hubPeerLister{hub: hub})
	mkt := marketplace.New(id.GatewayURL, nil)

	sessionName := "gu-blender-mediator-" + uuid.NewString()
	gwCfg := sessiongateway.Config{
		NodeID:  id.NodeID,
		GwURL:   id.GatewayURL,
		DavURL:  id.DavURL,
		Docker:  serveDocker,
		Name:    sessionName,
		EthAddr: id.EthAddr,
	}
	gw := sessiongateway.New(gwCfg, mkt, hub, wm, log)
	if err := gw.Start(); err != nil {
		return fmt.Errorf("failed to start default gateway: %w", err)
	}

	registry := mediator.NewRegistry()
	registry.Register("", gw)
	admin := mediator.NewAdmin(registry, hub, wm, id.NodeID, log)

	addr := fmt.Sprintf("127.0.0.1:%d", id.ListenPort)
	srv := mediator.NewServer(addr, admin, log)

	errChan := make(chan error, 1)
	go func() {
		pterm.Info.Printfln("admin surface listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	if !serveLocal {
		if err := config.RegisterWithServiceDirectory(context.Background(), addr); err != nil {
			log.Warnw("service directory registration failed, continuing unattended", "err", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("admin server failed: %w", err)
	case <-sigChan:
		pterm.Info.Println("shutting down gracefully...")
		gw.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mediator.Shutdown(ctx, srv); err != nil {
			return fmt.Errorf("admin server shutdown error: %w", err)
		}
		pterm.Success.Println("stopped cleanly")
		return nil
	}
}

func printStartupBanner(id config.Identity) {
	pterm.Printf("%s %s\n", pterm.LightCyan("gu-blender-mediator"), pterm.Gray(buildVersion))
	pterm.Info.Printfln("node id:    %s", id.NodeID)
	pterm.Info.Printfln("gw url:     %s", id.GatewayURL)
	pterm.Info.Printfln("dav url:    %s", id.DavURL)
	pterm.Info.Printfln("admin port: %d", id.ListenPort)
}
