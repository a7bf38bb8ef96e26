package tiltrig

import (
	"context"
	"sync"
	"testing"

	"github.com/jd3nn1s/tiltrig/wt901"
	"github.com/stretchr/testify/assert"
)

func TestInclinometerReaderPoll(t *testing.T) {
	bytes := make(chan []byte, inclinometerBufferDepth)
	r := NewInclinometerReader(bytes)

	// nothing pumped yet
	assert.False(t, r.Poll().Valid)

	bytes <- wt901.AngleFrame(4.5)
	sample := r.Poll()
	assert.True(t, sample.Valid)
	assert.InDelta(t, 4.5, sample.Degrees, 0.01)

	// no new frame invalidates the next poll
	assert.False(t, r.Poll().Valid)
}

func TestInclinometerReaderFreshest(t *testing.T) {
	bytes := make(chan []byte, inclinometerBufferDepth)
	r := NewInclinometerReader(bytes)

	bytes <- wt901.AngleFrame(1)
	bytes <- wt901.AngleFrame(2)
	bytes <- wt901.AngleFrame(3)

	sample := r.Poll()
	assert.True(t, sample.Valid)
	assert.InDelta(t, 3, sample.Degrees, 0.01)
}

func TestInclinometerReaderPartialFrame(t *testing.T) {
	bytes := make(chan []byte, inclinometerBufferDepth)
	r := NewInclinometerReader(bytes)

	frame := wt901.AngleFrame(-7.25)
	bytes <- frame[:5]
	assert.False(t, r.Poll().Valid)

	bytes <- frame[5:]
	sample := r.Poll()
	assert.True(t, sample.Valid)
	assert.InDelta(t, -7.25, sample.Degrees, 0.01)
}

func TestInclinometerReaderOutOfRange(t *testing.T) {
	bytes := make(chan []byte, inclinometerBufferDepth)
	r := NewInclinometerReader(bytes)

	bytes <- wt901.AngleFrame(60)
	sample := r.Poll()
	assert.True(t, sample.Valid)
	assert.False(t, sample.Usable())
}

func TestInclinometerPump(t *testing.T) {
	byteChan := make(chan []byte, inclinometerBufferDepth)

	origInclinometerConnect := inclinometerConnect
	defer func() {
		inclinometerConnect = origInclinometerConnect
	}()

	stub := createInclinometerStub()
	var port string
	var baudRate uint
	inclinometerConnect = func(p string, b uint) (Inclinometer, error) {
		port = p
		baudRate = b
		return stub, nil
	}

	pump := &inclinometerPump{
		port:     "/dev/fake",
		baudRate: 9600,
		sendChan: byteChan,
	}

	// close before opening
	assert.NoError(t, pump.Close())
	assert.NoError(t, pump.Open())
	assert.Equal(t, "/dev/fake", port)
	assert.Equal(t, uint(9600), baudRate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		_ = pump.Start(ctx)
		wg.Done()
	}()
	<-stub.startChan

	stub.fnChan <- func() {
		stub.callbacks.Data([]byte{0x55, 0x53, 0x01})
	}
	chunk := <-byteChan
	assert.Equal(t, []byte{0x55, 0x53, 0x01}, chunk)

	cancel()
	wg.Wait()
}
