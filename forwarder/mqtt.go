package forwarder

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jd3nn1s/tiltrig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const mqttDisconnectQuiesceMS = 250

type recordJSON struct {
	TimeMS       int64   `json:"time_ms"`
	FuelLevel    string  `json:"fuel_level"`
	InternalTemp string  `json:"internal_temp"`
	ExternalTemp string  `json:"external_temp"`
	Pitch        float64 `json:"pitch"`
	Phase        string  `json:"phase"`
	Direction    string  `json:"movement_direction"`
}

// MQTTForwarder publishes records as JSON for dashboards and loggers
// elsewhere on the bench network. Publishing is rate limited and lossy
// like the UDP mirror.
type MQTTForwarder struct {
	client  mqtt.Client
	topic   string
	fwdChan chan *tiltrig.Record
}

var mqttNewClient = func(opts *mqtt.ClientOptions) mqtt.Client {
	return mqtt.NewClient(opts)
}

func NewMQTTForwarder(broker, clientID, topic string) (*MQTTForwarder, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)
	client := mqttNewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "unable to connect to MQTT broker %s", broker)
	}
	log.WithField("broker", broker).Info("connected to MQTT broker")

	return &MQTTForwarder{
		client:  client,
		topic:   topic,
		fwdChan: make(chan *tiltrig.Record, 1),
	}, nil
}

func (m *MQTTForwarder) Close() error {
	m.client.Disconnect(mqttDisconnectQuiesceMS)
	return nil
}

func (m *MQTTForwarder) Forward(rec *tiltrig.Record) error {
	recCopy := *rec
	select {
	case m.fwdChan <- &recCopy:
	default:
	}
	return nil
}

func (m *MQTTForwarder) Start(ctx context.Context) error {
	limiter := time.Tick(forwardInterval)
	for {
		<-limiter
		select {
		case rec := <-m.fwdChan:
			if err := m.publish(rec); err != nil {
				log.Error("unable to publish record ", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *MQTTForwarder) publish(rec *tiltrig.Record) error {
	payload, err := json.Marshal(recordJSON{
		TimeMS:       rec.Elapsed.Milliseconds(),
		FuelLevel:    rec.Can.FuelLabel(),
		InternalTemp: rec.Can.InternalTempLabel(),
		ExternalTemp: rec.Can.ExternalTempLabel(),
		Pitch:        rec.Pitch,
		Phase:        rec.Phase,
		Direction:    rec.Direction,
	})
	if err != nil {
		return errors.Wrap(err, "unable to marshal record")
	}
	token := m.client.Publish(m.topic, 0, false, payload)
	token.Wait()
	return token.Error()
}
