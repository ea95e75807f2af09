package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/fedimint-go/fedimintd/api"
	"github.com/fedimint-go/fedimintd/config"
	"github.com/fedimint-go/fedimintd/consensus"
	"github.com/fedimint-go/fedimintd/consensus/testbroadcast"
	"github.com/fedimint-go/fedimintd/core"
	coremodule "github.com/fedimint-go/fedimintd/core/module"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/database/leveldbstore"
	"github.com/fedimint-go/fedimintd/log"
	"github.com/fedimint-go/fedimintd/module/example"
	"github.com/fedimint-go/fedimintd/taskgroup"
)

var (
	passwordFlag = &cli.StringFlag{
		Name:  "password",
		Usage: "password used to seal the config generated by --gen-config (loading an existing config reads the password file)",
	}
	listenAPIFlag = &cli.StringFlag{
		Name:  "api-addr",
		Usage: "address the JSON-RPC API server listens on",
		Value: "127.0.0.1:17750",
	}
	genConfigFlag = &cli.BoolFlag{
		Name:  "gen-config",
		Usage: "generate and seal a new single-peer config in data-dir if one is not already present",
	}
)

// inits is every module kind this binary knows how to construct. A real
// deployment would list its mint/wallet/lightning modules here; this one
// carries only the example counter module, which exists to exercise the
// registry, migration, and proposal pipeline end-to-end.
var inits = coremodule.InitRegistry{
	example.Kind: example.Init,
}

func run(cliCtx *cli.Context) error {
	dataDir := cliCtx.Args().First()
	if dataDir == "" {
		return fmt.Errorf("fedimintd: missing required <data-dir> argument")
	}

	dir := config.Dir{Path: dataDir}
	cfg, ok, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("fedimintd: load config: %w", err)
	}
	if !ok {
		if !cliCtx.Bool(genConfigFlag.Name) {
			return fmt.Errorf("fedimintd: no config found in %s; rerun with --gen-config to generate a single-peer one", dataDir)
		}
		cfg, err = generateDefaultConfig(dir, cliCtx.String(passwordFlag.Name))
		if err != nil {
			return fmt.Errorf("fedimintd: generate config: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg := taskgroup.New(ctx)

	store, err := leveldbstore.Open(dataDir + "/db")
	if err != nil {
		return fmt.Errorf("fedimintd: open database: %w", err)
	}
	db := database.New(store)

	registry, err := coremodule.NewRegistry(ctx, cfg.Modules, inits, db, tg, cfg.NumPeers(), cfg.Self)
	if err != nil {
		return fmt.Errorf("fedimintd: build module registry: %w", err)
	}

	queue := consensus.NewSubmissionQueue()
	lastConsensus := consensus.NewLastConsensusByPeer()
	conn := consensus.NewConnectionStatus()
	heights := consensus.NewHeightWatch()
	broadcast := testbroadcast.New()
	keychain := &testbroadcast.Keychain{}

	engine, err := consensus.NewEngine(cfg.Self, db, keychain, broadcast, registry, queue, lastConsensus, conn, heights, nil)
	if err != nil {
		return fmt.Errorf("fedimintd: build consensus engine: %w", err)
	}

	interval := config.ProposalInterval()
	for _, im := range registry.Iter() {
		consensus.SpawnProposer(tg, im.ID, im.Module, db.WithModulePrefix(im.ID), queue, interval)
	}

	tg.Spawn("consensus-engine", func(ctx context.Context) error {
		return engine.Run(ctx, tg)
	})

	server := api.NewServer(db, engine, queue, registry, cfg.AdminToken)
	for _, ep := range server.BuiltinEndpoints(tg) {
		server.RegisterBuiltin(ep)
	}
	for _, im := range registry.Iter() {
		server.RegisterModule(im.ID, im.Module)
	}

	apiAddr := cliCtx.String(listenAPIFlag.Name)
	httpServer := &http.Server{Addr: apiAddr, Handler: server}
	tg.Spawn("api-server", func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.ListenAndServe() }()
		select {
		case <-ctx.Done():
			return httpServer.Close()
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	})

	log.Info("fedimintd: serving", "api_addr", apiAddr, "peer_id", cfg.Self, "modules", registry.Len())

	err = tg.Wait()
	broadcast.Close()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func generateDefaultConfig(dir config.Dir, password string) (*config.ServerConfig, error) {
	if password == "" {
		return nil, fmt.Errorf("fedimintd: --gen-config requires --password")
	}
	cfg := &config.ServerConfig{
		Self: 0,
		Peers: []config.PeerEndpoint{
			{ID: 0, APIAddr: "127.0.0.1:17750", P2PAddr: "127.0.0.1:17751"},
		},
		Modules: map[core.ModuleInstanceID]coremodule.Config{
			0: {Kind: example.Kind, Cfg: []byte(`{}`)},
		},
	}
	if err := config.GenerateAndSave(dir, cfg, password); err != nil {
		return nil, err
	}
	return cfg, nil
}
