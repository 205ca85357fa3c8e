package port_reader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fastHandshake = HandshakeOptions{
	LinkAddress: "ba,55,57083C",
	RetryDelay:  time.Millisecond,
	ConnectWait: time.Millisecond,
}

func TestHandshakeRetriesUntilOK(t *testing.T) {
	checks := 0
	port := &fakePort{respond: func(written []byte) []byte {
		switch string(written) {
		case ATCheck:
			checks++
			switch checks {
			case 1:
				return nil
			case 2:
				return []byte("ERROR:(0)\r\n")
			default:
				return []byte(ATOK)
			}
		case ATState:
			return []byte(ATConnected)
		}
		return nil
	}}

	reader := NewBTReader(Options{Port: "fake"})
	reader.Attach(port)

	require.NoError(t, reader.Handshake(context.Background(), fastHandshake))
	require.Equal(t, []string{ATCheck, ATCheck, ATCheck, ATState}, port.written())
}

func TestHandshakeLinksWhenNotConnected(t *testing.T) {
	port := &fakePort{respond: func(written []byte) []byte {
		switch string(written) {
		case ATCheck:
			return []byte(ATOK)
		case ATState:
			return []byte("+STATE:INITIALIZED\r\n")
		case ATLink("ba,55,57083C"):
			return []byte(ATOK)
		}
		return nil
	}}

	reader := NewBTReader(Options{Port: "fake"})
	reader.Attach(port)

	require.NoError(t, reader.Handshake(context.Background(), fastHandshake))
	require.Equal(t, []string{ATCheck, ATState, "AT+LINK=ba,55,57083C\r\n"}, port.written())
}

func TestHandshakeLinkFailureIsNotFatal(t *testing.T) {
	port := &fakePort{respond: func(written []byte) []byte {
		if string(written) == ATCheck {
			return []byte(ATOK)
		}
		return nil
	}}

	reader := NewBTReader(Options{Port: "fake"})
	reader.Attach(port)

	require.NoError(t, reader.Handshake(context.Background(), fastHandshake))
	require.Len(t, port.written(), 3)
}

func TestHandshakeStopsOnCancel(t *testing.T) {
	port := &fakePort{}
	reader := NewBTReader(Options{Port: "fake"})
	reader.Attach(port)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := reader.Handshake(ctx, fastHandshake)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NotEmpty(t, port.written())
	for _, w := range port.written() {
		require.Equal(t, ATCheck, w)
	}
}

func TestHandshakeRequiresConnection(t *testing.T) {
	reader := NewBTReader(Options{Port: "fake"})
	err := reader.Handshake(context.Background(), fastHandshake)
	require.True(t, errors.Is(err, ErrNotConnected))
}
