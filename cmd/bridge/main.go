package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vmeter2mqtt/internal/config"
	"vmeter2mqtt/internal/mqtt"
	"vmeter2mqtt/internal/poll"
	"vmeter2mqtt/internal/server"
	"vmeter2mqtt/pkg/victron_modbus"

	"github.com/carlmjohnson/versioninfo"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	_ "github.com/joho/godotenv/autoload"
	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// startup logging before zap is configured
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		TimeFormat: time.DateTime,
	})))
	slog.Info("vmeter2mqtt", "version", versioninfo.Short())

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// meter reader
	reader, err := victron_modbus.CreateVMMeterModbusReader(cfg.MeterModbus.Host, cfg.MeterModbus.Port,
		uint8(cfg.MeterModbus.UnitId), cfg.MeterModbus.Transport,
		time.Duration(cfg.MeterModbus.TimeoutMillis)*time.Millisecond, logger, nil)
	if err != nil {
		logger.Fatal("could not create modbus reader", zap.Error(err))
	}
	if err := reader.Open(); err != nil {
		logger.Fatal("could not connect to VM-3P75CT. check IP address, cabling, "+
			"and that the meter is powered",
			zap.String("host", cfg.MeterModbus.Host), zap.Uint("port", cfg.MeterModbus.Port),
			zap.Error(err))
	}
	defer reader.Close()

	// MQTT client
	opts := mqtt.OptsFromConfig(cfg)
	client := mqtt.CreateMQTTClient(cfg, opts, func(c pahomqtt.Client) {
		logger.Info("mqtt connected")
	}, func(c pahomqtt.Client, err error) {
		logger.Error("mqtt connection lost", zap.Error(err))
	})
	if err := client.Connect(10 * time.Second); err != nil {
		logger.Fatal("could not connect to MQTT broker",
			zap.String("host", cfg.MQTT.Host), zap.Int("port", cfg.MQTT.Port), zap.Error(err))
	}

	publisher := mqtt.NewPublisher(client, cfg, logger)
	if err := publisher.PublishBridgeAvailability(true); err != nil {
		logger.Error("could not publish bridge state", zap.Error(err))
	}
	if cfg.MQTT.HADiscoveryEnable {
		if err := publisher.PublishHADiscovery(); err != nil {
			logger.Error("could not publish HA discovery configs", zap.Error(err))
		}
	}

	// polling loop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := poll.NewPoller(reader, publisher,
		time.Duration(cfg.PollConfig.IntervalMillis)*time.Millisecond, logger)
	if err := poller.Start(ctx); err != nil {
		logger.Fatal("could not start polling scheduler", zap.Error(err))
	}

	apiServer := server.NewServer(*cfg, poller)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, done)

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Fatal("http server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	poller.Stop()
	if err := publisher.PublishBridgeAvailability(false); err != nil {
		logger.Error("could not publish bridge state", zap.Error(err))
	}
	client.Disconnect(time.Second)
}

func initConfig() (*config.Config, error) {

	// alias PORT => VMBRIDGE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("VMBRIDGE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("vmbridge")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.MeterModbus.Host == "" {
		return nil, errors.New("config param meter_modbus.host is required")
	}
	if cfg.MeterModbus.UnitId > 255 {
		return nil, errors.New("config param meter_modbus.unit_id should be <= 255")
	}
	if cfg.MeterModbus.TimeoutMillis < 100 {
		return nil, errors.New("config param meter_modbus.timeout_millis should be >= 100")
	}
	if cfg.PollConfig.IntervalMillis < 500 {
		return nil, errors.New("config param poll.interval_millis should be >= 500")
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("meter_modbus.port", victron_modbus.DefaultPort)
	viper.SetDefault("meter_modbus.unit_id", 1)
	viper.SetDefault("meter_modbus.transport", "udp")
	viper.SetDefault("meter_modbus.timeout_millis", 1000)
	viper.SetDefault("poll.interval_millis", 1000)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "vmeter")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
