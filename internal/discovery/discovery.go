// Package discovery defines the peer-discovery contract that a concrete
// mDNS (or other) implementation fulfills. No concrete implementation ships
// here; callers inject one.
package discovery

import (
	"context"
	"net"
	"time"
)

// ServiceRecord describes one discoverable endpoint of the transfer
// service, as would be published or resolved via mDNS/DNS-SD.
type ServiceRecord struct {
	ServiceType  string
	InstanceName string
	Host         string
	Addresses    []net.IP
	Port         int
	TXT          map[string]string
}

// Announcer publishes a local ServiceRecord on the network until Stop is
// called.
type Announcer interface {
	Announce(ctx context.Context, record ServiceRecord) error
	Stop() error
}

// Browser discovers ServiceRecords of a given service type on the local
// network within timeout.
type Browser interface {
	Browse(ctx context.Context, serviceType string, timeout time.Duration) ([]ServiceRecord, error)
}
