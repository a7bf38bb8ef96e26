package forwarder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/BurntSushi/toml"
	"github.com/jd3nn1s/tiltrig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var maxRecordSize = int(unsafe.Sizeof(Header{}) + unsafe.Sizeof(Record{}))

const forwardInterval = 100 * time.Millisecond

type UDPConfig struct {
	Server string
	Port   int
}

// UDPForwarder mirrors the record stream to a listener as binary
// datagrams, rate limited and lossy so the rig never waits on the
// network.
type UDPForwarder struct {
	Config *UDPConfig

	conn    net.Conn
	fwdChan chan *tiltrig.Record
}

func NewUDPForwarder(fileName string) (*UDPForwarder, error) {
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to determine binary location")
	}
	file, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return NewUDPForwarderFromReader(file)
}

func NewUDPForwarderFromReader(configReader io.Reader) (*UDPForwarder, error) {
	configData, err := io.ReadAll(configReader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config reader")
	}
	config := UDPConfig{}
	if _, err := toml.Decode(string(configData), &config); err != nil {
		return nil, errors.Wrap(err, "unable to load udp forwarder configuration")
	}
	udp := &UDPForwarder{
		Config:  &config,
		fwdChan: make(chan *tiltrig.Record, 1),
	}
	if err = udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func (udp *UDPForwarder) Close() error {
	return udp.conn.Close()
}

// Forward queues a record for sending. When the queue is full the record
// is dropped; the CSV stream is the system of record, not the mirror.
func (udp *UDPForwarder) Forward(rec *tiltrig.Record) error {
	recCopy := *rec
	select {
	case udp.fwdChan <- &recCopy:
	default:
	}
	return nil
}

func (udp *UDPForwarder) Start(ctx context.Context) error {
	limiter := time.Tick(forwardInterval)
	for {
		<-limiter
		select {
		case rec := <-udp.fwdChan:
			if err := udp.forward(rec); err != nil {
				log.Error("unable to forward record to server ", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (udp *UDPForwarder) forward(rec *tiltrig.Record) error {
	buf := bytes.NewBuffer([]byte{})
	hdr := Header{
		Type: TypeRecord,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "unable to write udp packet header")
	}
	wire := Encode(rec)
	if err := binary.Write(buf, binary.LittleEndian, &wire); err != nil {
		return errors.Wrap(err, "unable to write record udp packet")
	}
	return binary.Write(udp.conn, binary.LittleEndian, buf.Bytes())
}

func (udp *UDPForwarder) connect() error {
	writeBufSize := maxRecordSize * 2

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return err
	}
	udpConn := conn.(*net.UDPConn)
	if err = udpConn.SetWriteBuffer(writeBufSize); err != nil {
		return errors.Wrapf(err, "unable to set OS write buffer to %v", writeBufSize)
	}

	udp.conn = conn
	return nil
}
