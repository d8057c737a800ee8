package application

import (
	"sync"

	"github.com/IniZio/skygear-sdk-go/internal/ports"
)

// flagPubsub stands in for the real-time transport when none is wired.
type flagPubsub struct {
	mu   sync.RWMutex
	auto bool
}

var _ ports.Pubsub = (*flagPubsub)(nil)

func newFlagPubsub(auto bool) *flagPubsub {
	return &flagPubsub{auto: auto}
}

func (p *flagPubsub) AutoPubsub() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.auto
}

func (p *flagPubsub) SetAutoPubsub(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.auto = enabled
}
