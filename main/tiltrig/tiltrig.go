package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"strings"

	"github.com/jd3nn1s/tiltrig"
	"github.com/jd3nn1s/tiltrig/forwarder"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/host/v3"
)

var (
	configFile    = flag.String("config", "tiltrig.toml", "rig configuration file")
	udpConfigFile = flag.String("udp-forward", "", "UDP forwarder configuration file")
	testMode      = flag.Bool("testmode", false, "run against a simulated platform")
	verbose       = flag.Bool("verbose", false, "enable debug logging")
)

func main() {
	flag.Parse()
	log.SetLevel(log.InfoLevel)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	// records go to stdout, diagnostics to stderr
	log.SetOutput(os.Stderr)

	cfg := loadConfig()

	ctx := context.Background()
	clock := tiltrig.NewClock()

	in1, in2, ena := actuatorPins(cfg)
	actuator := tiltrig.NewActuatorDriver(in1, in2, ena)
	rig := tiltrig.NewRig(clock, actuator, os.Stdout)

	if *udpConfigFile != "" {
		fwder, err := forwarder.NewUDPForwarder(*udpConfigFile)
		if err != nil {
			log.Fatal("unable to load UDP forwarder: ", err)
		}
		go fwder.Start(ctx)
		rig.AddForwarder(fwder)
	}
	if cfg.MQTT.Broker != "" {
		fwder, err := forwarder.NewMQTTForwarder(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			log.Fatal("unable to connect MQTT forwarder: ", err)
		}
		go fwder.Start(ctx)
		rig.AddForwarder(fwder)
	}

	if *testMode {
		sim := rig.NewSimPlant(in1, in2, ena)
		go sim.Run(ctx)
	} else {
		rig.Start(ctx, cfg)
	}

	commands := make(chan string)
	go readCommands(commands)

	seq := tiltrig.NewTestSequencer(rig)
	if err := seq.Run(ctx, commands); err != nil {
		log.Fatal("sequencer stopped: ", err)
	}
}

func loadConfig() *tiltrig.Config {
	cfg, err := tiltrig.LoadConfig(*configFile)
	if err != nil {
		if *testMode && os.IsNotExist(errors.Cause(err)) {
			log.Info("no configuration file, using defaults")
			return tiltrig.DefaultConfig()
		}
		log.Fatal("unable to load configuration: ", err)
	}
	return cfg
}

func actuatorPins(cfg *tiltrig.Config) (gpio.PinIO, gpio.PinIO, gpio.PinIO) {
	if *testMode {
		return &gpiotest.Pin{N: cfg.Actuator.IN1},
			&gpiotest.Pin{N: cfg.Actuator.IN2},
			&gpiotest.Pin{N: cfg.Actuator.ENA}
	}

	if _, err := host.Init(); err != nil {
		log.Fatal("unable to initialize GPIO host: ", err)
	}
	in1 := gpioreg.ByName(cfg.Actuator.IN1)
	in2 := gpioreg.ByName(cfg.Actuator.IN2)
	ena := gpioreg.ByName(cfg.Actuator.ENA)
	if in1 == nil || in2 == nil || ena == nil {
		log.WithField("in1", cfg.Actuator.IN1).
			WithField("in2", cfg.Actuator.IN2).
			WithField("ena", cfg.Actuator.ENA).
			Fatal("unknown actuator pin name")
	}
	return in1, in2, ena
}

func readCommands(commands chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		commands <- strings.TrimSpace(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.WithField("err", err).Warn("command input closed")
	}
}
