// Package podstate provides centralized pod state management.
//
// Coordinator handles:
//   - Draining manufacturer data from a BLE advertisement source
//   - Decoding proximity pairing records (battery, charging, in-ear, lid)
//   - Upgrading battery levels to 1% precision when an encryption key is set
//   - Notifying UI and other components of state updates via callbacks
//
// Foreign and malformed advertisements are routine; they are counted and
// otherwise ignored.
package podstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"podbeacon/internal/ble"
	"podbeacon/internal/metrics"
	"podbeacon/internal/proximity"
)

const advertisementBuffer = 64

// Source delivers advertisements until ctx is done. *ble.Scanner implements it.
type Source interface {
	Run(ctx context.Context, out chan<- ble.Advertisement) error
}

// UpdateCallback is called when pod state is updated
type UpdateCallback func(*PodState)

// Options configures a Coordinator
type Options struct {
	// CompanyID selects the manufacturer data to decode; 0 means Apple.
	CompanyID uint16
	// Key is the optional 16-byte accessory encryption key.
	Key []byte
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Coordinator manages pod state and coordinates updates
type Coordinator struct {
	source    Source
	companyID uint16
	key       []byte
	metrics   *metrics.Metrics
	snapshot  *ble.Snapshot

	mu        sync.RWMutex
	callbacks []UpdateCallback
	lastState *PodState
}

// NewCoordinator creates a coordinator reading from src
func NewCoordinator(src Source, opts Options) *Coordinator {
	companyID := opts.CompanyID
	if companyID == 0 {
		companyID = proximity.AppleCompanyID
	}
	return &Coordinator{
		source:    src,
		companyID: companyID,
		key:       opts.Key,
		metrics:   opts.Metrics,
		snapshot:  ble.NewSnapshot(),
	}
}

// RegisterCallback registers a callback to be notified of state updates
func (c *Coordinator) RegisterCallback(cb UpdateCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)

	// If we have cached data, immediately notify the new callback
	if c.lastState != nil {
		go cb(c.lastState)
	}
}

// LastState returns the most recent state, or nil if none available
func (c *Coordinator) LastState() *PodState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastState
}

// Run drains the source until ctx is done or the source fails.
func (c *Coordinator) Run(ctx context.Context) error {
	advs := make(chan ble.Advertisement, advertisementBuffer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.source.Run(ctx, advs)
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case adv := <-advs:
				c.Handle(adv)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Debug().Msg("pod state coordinator stopped")
	}
	return err
}

// Handle processes one advertisement. It returns the new state when the
// advertisement decoded to a proximity pairing record.
func (c *Coordinator) Handle(adv ble.Advertisement) (*PodState, bool) {
	if c.metrics != nil {
		c.metrics.ObserveAdvertisement(adv.CompanyID)
	}

	c.snapshot.Store(adv.CompanyID, adv.Data)
	if adv.CompanyID != c.companyID {
		return nil, false
	}

	data, _ := c.snapshot.Load(c.companyID)
	record, ok := proximity.Decode(data)
	if !ok {
		if c.metrics != nil {
			c.metrics.Rejected.Inc()
		}
		log.Debug().Str("device", adv.Device).Int("len", len(data)).Msg("ignoring non proximity pairing data")
		return nil, false
	}

	state := FromRecord(record)
	state.Device = adv.Device
	state.Updated = adv.Received
	if state.Updated.IsZero() {
		state.Updated = time.Now()
	}

	if c.key != nil {
		precise, err := proximity.DecryptTail(record, c.key)
		if err != nil {
			log.Debug().Err(err).Str("device", adv.Device).Msg("tail decryption failed, using BLE levels")
		} else {
			state.ApplyPrecise(precise)
		}
	}

	c.observe(state)
	c.publish(state)
	return state, true
}

func (c *Coordinator) observe(s *PodState) {
	if c.metrics == nil {
		return
	}
	c.metrics.Decoded.WithLabelValues(s.Model.String()).Inc()
	for component, level := range map[string]*int{
		"left":  s.LeftBattery,
		"right": s.RightBattery,
		"case":  s.CaseBattery,
	} {
		if level != nil {
			c.metrics.Battery.WithLabelValues(component).Set(float64(*level))
		}
	}
	c.metrics.InEar.WithLabelValues("left").Set(metrics.BoolGauge(s.LeftInEar))
	c.metrics.InEar.WithLabelValues("right").Set(metrics.BoolGauge(s.RightInEar))
	c.metrics.LidOpen.Set(metrics.BoolGauge(s.LidOpen))
}

// publish stores the state and notifies all listeners
func (c *Coordinator) publish(s *PodState) {
	c.mu.Lock()
	changed := !s.SameReading(c.lastState)
	c.lastState = s
	callbacks := make([]UpdateCallback, len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	if changed {
		log.Info().
			Str("model", s.Model.String()).
			Str("device", s.Device).
			Str("source", s.Source.String()).
			Int("lowest_battery", s.LowestBattery()).
			Bool("left_in_ear", s.LeftInEar).
			Bool("right_in_ear", s.RightInEar).
			Bool("lid_open", s.LidOpen).
			Msg("pod state changed")
	}

	for _, cb := range callbacks {
		cb(s)
	}
}
