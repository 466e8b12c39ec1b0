package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultProbeInterval is the default spacing between reachability checks.
const DefaultProbeInterval = 15 * time.Second

// Probe derives connectivity from periodic HTTP HEAD requests against a
// health endpoint and drives an embedded Switch. Use it where no platform
// reachability signal is available (e.g., the agent binary).
type Probe struct {
	*Switch

	url      string
	interval time.Duration
	client   *http.Client
	logger   zerolog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewProbe creates a probe for the given URL. The probe starts optimistic
// (online) until the first check says otherwise.
func NewProbe(url string, interval time.Duration, logger zerolog.Logger) *Probe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Probe{
		Switch:   NewSwitch(true),
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// Start begins probing in the background until Stop is called.
func (p *Probe) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx)
}

// Stop halts the probe loop. Safe to call only after Start.
func (p *Probe) Stop() {
	p.cancel()
	<-p.done
}

func (p *Probe) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Probe) check(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.logger.Error().Err(err).Str("url", p.url).Msg("Invalid probe URL")
		return
	}

	resp, err := p.client.Do(req)
	online := err == nil && resp.StatusCode < 500
	if resp != nil {
		resp.Body.Close()
	}

	if online != p.IsOnline() {
		p.logger.Info().Bool("online", online).Msg("Connectivity changed")
	}
	p.SetOnline(online)
}
