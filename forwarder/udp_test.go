package forwarder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jd3nn1s/tiltrig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *tiltrig.Record {
	return &tiltrig.Record{
		Elapsed: 1230 * time.Millisecond,
		Pitch:   4.92,
		Can: tiltrig.CanReading{
			HasData:      true,
			FuelLevel:    820,
			InternalTemp: 2930,
			ExternalTemp: 2950,
		},
		Phase:     "Stationary1",
		Direction: "None",
	}
}

func TestUDPForwarder(t *testing.T) {
	pc, err := net.ListenPacket("udp", "localhost:0")
	require.NoError(t, err)
	defer pc.Close()
	udpAddr := pc.LocalAddr().(*net.UDPAddr)
	config := fmt.Sprintf(`
Server = "127.0.0.1"
Port = %d
`, udpAddr.Port)

	recvData := struct {
		data []byte
		len  int
	}{}

	dataChan := make(chan struct{}, 1)
	go func() {
		buffer := make([]byte, 1024)
		assert.NoError(t, pc.SetReadDeadline(time.Now().Add(time.Second*3)))
		n, _, err := pc.ReadFrom(buffer)
		assert.NoError(t, err)
		recvData.data = buffer
		recvData.len = n
		dataChan <- struct{}{}
	}()

	udp, err := NewUDPForwarderFromReader(bytes.NewBufferString(config))
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = udp.Start(ctx)
	}()

	rec := testRecord()
	assert.NoError(t, udp.Forward(rec))

	<-dataChan
	assert.Equal(t, 19, recvData.len)

	hdr := Header{}
	recvRec := Record{}
	rdr := bytes.NewReader(recvData.data)
	assert.NoError(t, binary.Read(rdr, binary.LittleEndian, &hdr))
	assert.NoError(t, binary.Read(rdr, binary.LittleEndian, &recvRec))
	assert.Equal(t, uint8(TypeRecord), hdr.Type)
	assert.Equal(t, Encode(rec), recvRec)
}

func TestUDPForwarderDropsWhenFull(t *testing.T) {
	udp := &UDPForwarder{
		fwdChan: make(chan *tiltrig.Record, 1),
	}
	rec := testRecord()
	assert.NoError(t, udp.Forward(rec))
	assert.NoError(t, udp.Forward(rec))
	assert.Equal(t, 1, len(udp.fwdChan))

	// the queued record is a copy, immune to the caller reusing rec
	rec.Pitch = -1
	queued := <-udp.fwdChan
	assert.InDelta(t, 4.92, queued.Pitch, 0.001)
}

func TestUDPForwarderBadConfig(t *testing.T) {
	_, err := NewUDPForwarderFromReader(bytes.NewBufferString("not toml {"))
	assert.Error(t, err)
}
