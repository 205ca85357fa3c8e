package mqttbridge

import (
	"fmt"
	"net"
	"net/url"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	log "github.com/sirupsen/logrus"
)

// PingHost pings host once. Brokers behind firewalls may drop ICMP, so a
// missing reply is only a hint.
func PingHost(host string) (bool, time.Duration, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, 0, err
	}

	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false) // UDP-based, no root needed

	err = pinger.Run()
	if err != nil {
		return false, 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt, nil
	}

	return false, 0, fmt.Errorf("no response from %s", host)
}

// pingBrokers logs whether each broker host answers ping. Each ping may take
// up to two seconds so callers run it in the background.
func pingBrokers(servers []*url.URL) {
	for _, server := range servers {
		if ok, rtt, err := PingHost(server.Host); ok {
			log.Debugf("Broker host %s answers ping in %v", server.Host, rtt)
		} else {
			log.Warnf("Broker host %s does not answer ping: %v", server.Host, err)
		}
	}
}
