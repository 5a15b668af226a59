package handler

import (
	"net"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/fault"
)

type BotBlockerConfig struct {
	IPs []net.IP `config:"ips"`
	// Patterns match the client IP text.
	Patterns []*regexp.Regexp `config:"patterns"`
}

// BotBlocker claims requests from blocked clients and denies them.
type BotBlocker struct {
	base
	conf BotBlockerConfig
}

func NewBotBlocker(deps Deps, conf BotBlockerConfig) *BotBlocker {
	return &BotBlocker{base: newBase("bot-blocker", deps), conf: conf}
}

func (b *BotBlocker) CanHandle(req *core.Request) (bool, error) {
	return b.blocked(clientIP(req.HTTP)), nil
}

func (b *BotBlocker) blocked(ip string) bool {
	if parsed := net.ParseIP(ip); parsed != nil {
		for _, blocked := range b.conf.IPs {
			if blocked.Equal(parsed) {
				return true
			}
		}
	}
	for _, re := range b.conf.Patterns {
		if re.MatchString(ip) {
			return true
		}
	}
	return false
}

func (b *BotBlocker) Handle(_ http.ResponseWriter, req *core.Request) error {
	b.log.Info("Blocked client", zap.String("ip", clientIP(req.HTTP)), zap.String("url", req.RelativeURL))
	return fault.New(fault.Forbidden, "ACCESS DENIED: your client is not allowed to use this service.")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
