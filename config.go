package tiltrig

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the rig wiring description loaded at startup.
type Config struct {
	Inclinometer InclinometerConfig
	CAN          CANConfig
	Actuator     ActuatorConfig
	MQTT         MQTTConfig
}

type InclinometerConfig struct {
	Port     string
	BaudRate uint
}

type CANConfig struct {
	Interface string
}

// ActuatorConfig names the H-bridge control pins by their GPIO registry
// names.
type ActuatorConfig struct {
	IN1 string
	IN2 string
	ENA string
}

// MQTTConfig is optional; an empty broker disables record publishing.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
}

// DefaultConfig matches the bench wiring of the rig.
func DefaultConfig() *Config {
	return &Config{
		Inclinometer: InclinometerConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 9600,
		},
		CAN: CANConfig{
			Interface: "can0",
		},
		Actuator: ActuatorConfig{
			IN1: "GPIO17",
			IN2: "GPIO27",
			ENA: "GPIO22",
		},
		MQTT: MQTTConfig{
			ClientID: "tiltrig",
			Topic:    "tiltrig/records",
		},
	}
}

func LoadConfig(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

func LoadConfigFromReader(configReader io.Reader) (*Config, error) {
	configData, err := io.ReadAll(configReader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config reader")
	}
	config := DefaultConfig()
	if _, err := toml.Decode(string(configData), config); err != nil {
		return nil, errors.Wrap(err, "unable to load rig configuration")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Inclinometer.Port == "" {
		return errors.New("inclinometer port not configured")
	}
	if c.Inclinometer.BaudRate == 0 {
		return errors.New("inclinometer baud rate not configured")
	}
	if c.CAN.Interface == "" {
		return errors.New("CAN interface not configured")
	}
	if c.Actuator.IN1 == "" || c.Actuator.IN2 == "" || c.Actuator.ENA == "" {
		return errors.New("actuator pins not configured")
	}
	return nil
}
