package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AaronLay10/SentientSim/internal/api"
	"github.com/AaronLay10/SentientSim/internal/config"
	"github.com/AaronLay10/SentientSim/internal/events"
	"github.com/AaronLay10/SentientSim/internal/mqtt"
	"github.com/AaronLay10/SentientSim/internal/orchestrator"
	"github.com/AaronLay10/SentientSim/internal/pattern"
	"github.com/AaronLay10/SentientSim/internal/storage/postgres"
	"github.com/AaronLay10/SentientSim/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to sim.yaml (optional)")
	outDir := flag.String("out", "", "output directory for traces (overrides sim.yaml and scene)")
	policyFlag := flag.String("policy", "", "pattern policy: strict (default) or hold_last (overrides sim.yaml)")
	apiPort := flag.Int("api-port", -1, "monitoring API port (overrides sim.yaml, 0 disables)")
	serve := flag.Bool("serve", false, "keep the monitoring API running after all scenes finish")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: simulate [flags] scene.{json,yaml}...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("Sentient Sim %s\n", version.Version)
		return 0
	}
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadSimConfig(*configPath)
		if err != nil {
			log.Printf("failed to load %s: %v", *configPath, err)
			return 1
		}
		cfg = loaded
	}

	policyName := cfg.Sim.PatternPolicy
	if *policyFlag != "" {
		policyName = *policyFlag
	}
	policy, err := pattern.ParsePolicy(policyName)
	if err != nil {
		log.Printf("invalid pattern policy: %v", err)
		return 1
	}

	port := cfg.APIPort()
	if *apiPort >= 0 {
		port = *apiPort
	}

	events.SetOutput(os.Stdout)
	hostname, _ := os.Hostname()
	dataset := cfg.DatasetName()
	events.Emit("info", "system.startup", "simulator starting", map[string]interface{}{
		"service":  "simulate",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"scenes":   flag.NArg(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pg *postgres.Client
	if cfg.Postgres.Enabled {
		pg, err = postgres.New(dataset)
		if err != nil {
			log.Printf("postgres unavailable, continuing without persistence: %v", err)
			pg = nil
		} else {
			defer pg.Close()
			events.SetPostgresClient(pg)
			runs, restored, err := orchestrator.RestoreRunHistory(pg, orchestrator.DefaultHistoryLimit)
			if err != nil {
				log.Printf("failed to restore run history: %v", err)
			} else {
				orchestrator.EmitStartupRestore(restored, runs, dataset)
			}
		}
	}

	var notifier *mqtt.ResultNotifier
	mqttConnected := false
	if cfg.MQTT.Enabled {
		opts, err := mqtt.OptionsFromEnv("sentient-sim-"+hostname, mqtt.StatusTopic(cfg.TopicPrefix()))
		if err != nil {
			log.Printf("failed to configure mqtt: %v", err)
			return 1
		}
		client := mqtt.NewClient(opts)
		mqttConnected = client.StartWithRetry()
		if mqttConnected {
			defer client.Disconnect()
		}
		notifier = mqtt.NewResultNotifier(client, cfg.TopicPrefix())
	}

	if port > 0 {
		api.InitMetrics(dataset)
		if err := api.InitAuth(); err != nil {
			log.Printf("failed to initialize API auth: %v", err)
			return 1
		}
		api.InitTLS()
		api.SetMQTTState(mqttConnected, !cfg.MQTT.Enabled)
		api.SetPostgresState(pg != nil, !cfg.Postgres.Enabled)
		api.Start(port)
	}

	runner := &sceneRunner{
		cfg:      cfg,
		policy:   policy,
		outDir:   *outDir,
		shapes:   orchestrator.DefaultShapes().With(cfg.Shapes),
		dataset:  dataset,
		pg:       pg,
		notifier: notifier,
	}

	api.SetSimulatorReady(true)
	exitCode := 0
	for _, path := range flag.Args() {
		outcome, err := runner.run(ctx, path)
		if err != nil {
			if errors.Is(err, orchestrator.ErrCancelled) {
				log.Printf("%s: cancelled", path)
				exitCode = 130
				break
			}
			log.Printf("%s: %v", path, err)
			exitCode = 1
			continue
		}
		fmt.Println(outcome.verdict())
	}
	api.SetSimulatorReady(false)

	if *serve && port > 0 && exitCode != 130 {
		log.Printf("scenes finished, serving API on :%d until interrupted", port)
		<-ctx.Done()
	}

	events.Emit("info", "system.shutdown", "simulator stopping", map[string]interface{}{
		"exit_code": exitCode,
	})
	events.CloseAllSubscribers()
	return exitCode
}
