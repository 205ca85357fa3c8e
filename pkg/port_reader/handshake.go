package port_reader

import (
	"context"
	"errors"
	"io"

	log "github.com/sirupsen/logrus"
)

// AT commands understood by the HC-05 style adapter.
const (
	ATCheck     = "AT\r\n"
	ATOK        = "OK\r\n"
	ATState     = "AT+STATE?\r\n"
	ATConnected = "+STATE:CONNECTED\r\n"
)

func ATLink(address string) string {
	return "AT+LINK=" + address + "\r\n"
}

// Handshake puts the adapter in AT mode and links it to the slave module.
// The AT check is retried until it succeeds or ctx ends; a failed link is
// only logged, as the adapter may still come up on its own.
func (p *BTReader) Handshake(ctx context.Context, opts HandshakeOptions) error {
	if p.serialPort == nil {
		return ErrNotConnected
	}

	for {
		log.Info("Please keep pressing button to keep in AT mode.")
		if err := sleepContext(ctx, opts.RetryDelay); err != nil {
			return err
		}
		if err := p.write([]byte(ATCheck)); err != nil {
			return err
		}
		received, err := p.readLine()
		if err != nil {
			return err
		}

		if len(received) == 0 {
			log.Error("Received nothing. Please check connection.")
		} else if string(received) == ATOK {
			log.Info("Successfully connect to BT via AT command.")
			break
		} else {
			log.Errorf("Received: %q", received)
		}
	}

	if err := p.write([]byte(ATState)); err != nil {
		return err
	}
	received, err := p.readLine()
	if err != nil {
		return err
	}
	if string(received) == ATConnected {
		log.Info("Already connected to slave BT device.")
		return nil
	}

	if err := p.write([]byte(ATLink(opts.LinkAddress))); err != nil {
		return err
	}
	log.Info("Connecting...")
	if err := sleepContext(ctx, opts.ConnectWait); err != nil {
		return err
	}
	received, err = p.readLine()
	if err != nil {
		return err
	}
	if string(received) == ATOK {
		log.Info("Successfully connect to slave BT device.")
	} else {
		log.Errorf("Received: %q", received)
	}
	return nil
}

// readLine returns whatever arrived up to and including '\n'. A read timeout
// gives a partial or empty line, not an error.
func (p *BTReader) readLine() ([]byte, error) {
	line, err := p.reader.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return line, err
	}
	return line, nil
}
