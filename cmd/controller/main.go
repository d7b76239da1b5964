package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lume-glove/controller/internal/controller"
	"github.com/lume-glove/controller/internal/filter"
	"github.com/lume-glove/controller/internal/flex"
	"github.com/lume-glove/controller/internal/monitoring"
	"github.com/lume-glove/controller/internal/network"
	"github.com/lume-glove/controller/internal/sensor"
	"github.com/lume-glove/controller/internal/serialmux"
	"github.com/lume-glove/controller/internal/telemetry"
	"github.com/lume-glove/controller/internal/timeutil"
	"github.com/lume-glove/controller/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to a controller config file (.json or .yaml); defaults apply when empty")
	devMode       = flag.Bool("dev", false, "Run with a synthetic sensor stream instead of the serial co-processor")
	disableSensor = flag.Bool("disable-sensor", false, "Run without a sensor link (every tick reports a sensor error)")
	listen        = flag.String("listen", network.DefaultAddress, "UDP address to listen on for the peer greeting")
	port          = flag.String("port", "/dev/ttyS0", "Serial port of the sensor co-processor (ignored in dev mode)")
	debugListen   = flag.String("debug-listen", "127.0.0.1:8081", "HTTP address for /debug/ pages; empty disables")
	tick          = flag.Duration("tick", 15*time.Millisecond, "Telemetry tick interval")
	flexThreshold = flag.Int("flex-threshold", 1700, "Raw flex reading at or below which a finger counts as bent")
	verbose       = flag.Bool("verbose", false, "Log per-tick diagnostics")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetVerbose(*verbose)

	cfg, err := loadConfig(*configPath, flagsSet())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("lume controller %s", version.String())

	var sensorSerial serialmux.SerialMuxInterface
	switch {
	case *disableSensor:
		sensorSerial = serialmux.NewDisabledSerialMux()
	case *devMode:
		sensorSerial = serialmux.NewMockSerialMux(newSyntheticGlove(time.Now()).Line, cfg.GetTickInterval())
	default:
		sensorSerial, err = serialmux.NewRealSerialMux(cfg.GetSerialPort(), cfg.GetSerialOptions())
		if err != nil {
			log.Fatalf("failed to open sensor port: %v", err)
		}
	}
	defer sensorSerial.Close()

	bankCfg := filter.DefaultBankConfig()
	bankCfg.WindowSize = cfg.GetWindowSize()
	bank, err := filter.NewBank(bankCfg)
	if err != nil {
		log.Fatalf("failed to build filter bank: %v", err)
	}
	agg := telemetry.NewAggregator(bank, flex.NewClassifier(cfg.GetFlexThreshold()))

	session := network.NewSession(network.SessionConfig{
		Address: cfg.GetListenAddress(),
		RcvBuf:  cfg.GetRcvBuf(),
	})
	defer session.Close()

	clock := timeutil.RealClock{}
	discovery := network.NewDiscovery(session, network.DiscoveryConfig{
		MaxAttempts:  cfg.GetDiscoveryMaxAttempts(),
		PollInterval: cfg.GetDiscoveryPollInterval(),
		Timeout:      cfg.GetDiscoveryTimeout(),
		Clock:        clock,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := sensor.NewSerialSource(sensorSerial)
	source.Start(ctx)

	ctrl, err := controller.New(controller.Config{
		TickInterval:             cfg.GetTickInterval(),
		DiscoveryBackoff:         cfg.GetDiscoveryBackoff(),
		StatsInterval:            cfg.GetStatsInterval(),
		RediscoverAfter:          cfg.GetRediscoverAfter(),
		HardwareFailureThreshold: cfg.GetHardwareFailureThreshold(),
	}, controller.Deps{
		Source:     source,
		Aggregator: agg,
		Session:    session,
		Discovery:  discovery,
		Clock:      clock,
	})
	if err != nil {
		log.Fatalf("failed to create controller: %v", err)
	}

	var (
		wg     sync.WaitGroup
		runErr error
	)

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sensorSerial.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor sensor port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ctrl.Run(ctx); err != nil {
			runErr = err
			stop()
			return
		}
		log.Print("controller routine terminated")
	}()

	if *debugListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mux := http.NewServeMux()
			sensorSerial.AttachAdminRoutes(mux)
			ctrl.AttachAdminRoutes(mux)

			server := &http.Server{
				Addr:              *debugListen,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Printf("debug server failed: %v", err)
				}
			}()

			<-ctx.Done()
			log.Println("shutting down debug server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("debug server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("debug server force close error: %v", err)
				}
			}
			log.Printf("debug server routine stopped")
		}()
	}

	wg.Wait()
	ctrl.Stats().LogStats()
	if runErr != nil {
		session.Close()
		sensorSerial.Close()
		log.Printf("controller stopped: %v", runErr)
		os.Exit(1)
	}
	log.Printf("Graceful shutdown complete")
}
