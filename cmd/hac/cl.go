package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/calehh/hac-gov/agent"
	"github.com/calehh/hac-gov/app"
	app_config "github.com/calehh/hac-gov/config"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var homeDir string

var clCmd = &cobra.Command{
	Use:   "hac-cl",
	Short: "HAC governance chain",
	Long: `A stake weighted governance chain for the HAC savings platform.
Members lock stake, propose, vote and execute config changes on chain.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	clCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	appConfig, err := app_config.LoadConfig(homeDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pv := privval.LoadFilePV(
		appConfig.PrivValidatorKeyFile(),
		appConfig.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(appConfig.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(appConfig.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	app, err := app.NewHACApp(appConfig.App, logger)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}
	if appConfig.Instrumentation.Prometheus {
		app.EnableMetrics(appConfig.Instrumentation.Namespace, prometheus.DefaultRegisterer)
	}

	node, err := nm.NewNode(
		appConfig.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(app),
		nm.DefaultGenesisDocProviderFunc(appConfig.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(appConfig.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating node: %v", err)
	}

	app.Start(node.BlockStore())
	err = node.Start()
	if err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	time.Sleep(time.Second * 5)
	if !node.IsRunning() {
		log.Fatal("comet node unable to run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	var indexer *agent.ChainIndexer
	if appConfig.Agent.Enable {
		indexer = startAgent(ctx, appConfig, logger)
	}

	defer func() {
		log.Println("shut done...")
		cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			err = node.Stop()
			if err != nil {
				log.Fatalf("stop comet node err %s", err.Error())
			}
			node.Wait()
			app.Stop()
			if indexer != nil {
				_ = indexer.Close()
			}
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// startAgent follows the local node over RPC into sqlite and serves it over http.
func startAgent(ctx context.Context, cfg *app_config.Config, logger cmtlog.Logger) *agent.ChainIndexer {
	rpcUrl, err := url.Parse(cfg.RPC.ListenAddress)
	if err != nil {
		log.Fatalf("new parse url err %s", err.Error())
	}
	rpcUrl.Scheme = "http"
	dbPath := cfg.Agent.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(cfg.RootDir, dbPath)
	}
	indexer, err := agent.NewChainIndexer(logger, dbPath, rpcUrl.String())
	if err != nil {
		log.Fatalf("new chain indexer err %s", err.Error())
	}
	go indexer.Start(ctx, cfg.Agent.PollInterval)

	service := agent.NewService(cfg.Agent.ListenAddr, indexer)
	go func() {
		if err := service.Start(); err != nil {
			logger.Error("agent service stopped", "err", err)
		}
	}()
	return indexer
}
