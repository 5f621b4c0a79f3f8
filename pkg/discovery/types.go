package discovery

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Service constants.
const (
	ServiceType = "_sd400mp._tcp"
	Domain      = "local."
	DefaultPort = 8080

	// MaxInstanceNameLen is the DNS-SD instance label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrNotFound            = errors.New("server not found")
	ErrInvalidTXT          = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name too long")
)

// Server is a discovered MP server.
type Server struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	Info
}

// URL returns the base URL of s, preferring the first address over the host name.
func (s *Server) URL() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(int(s.Port))),
		Path:   s.Path,
	}
	return u.String()
}

// Info is the advertised server description.
type Info struct {
	Name       string
	APIVersion string
	Scheme     string
	Path       string
}

// BrowserConfig configures the browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string
}

// AdvertiserConfig configures the advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	Interface string

	// TTL overrides the record TTL.
	TTL time.Duration
}
