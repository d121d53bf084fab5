// Package vitals simulates a bedside monitor: on every tick it derives a
// plausible reading from the last one and records it.
package vitals

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
)

// Reading ranges.
const (
	MinHeartRate = 60
	MaxHeartRate = 110
	MinSystolic  = 100
	MaxSystolic  = 140
	MinDiastolic = 60
	MaxDiastolic = 90
	MinSpO2      = 94
	MaxSpO2      = 100
)

// Generator produces readings that drift a few units from the previous one.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type reading struct {
	hr, sys, dia, spo2 int
}

func parse(v models.Vitals) reading {
	r := reading{hr: 78, sys: 120, dia: 80, spo2: 98}
	if n, err := strconv.Atoi(strings.TrimSpace(v.HeartRate)); err == nil {
		r.hr = n
	}
	if sys, dia, ok := strings.Cut(v.BloodPressure, "/"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(sys)); err == nil {
			r.sys = n
		}
		if n, err := strconv.Atoi(strings.TrimSpace(dia)); err == nil {
			r.dia = n
		}
	}
	if n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v.SpO2), "%")); err == nil {
		r.spo2 = n
	}
	return r
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func (g *Generator) drift(v, step, lo, hi int) int {
	return clamp(v+g.rnd.IntN(2*step+1)-step, lo, hi)
}

// Next derives a new reading from last. Missing or unparsable fields
// start from typical resting values.
func (g *Generator) Next(last models.Vitals, now time.Time) models.Vitals {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := parse(last)
	r.hr = g.drift(r.hr, 4, MinHeartRate, MaxHeartRate)
	r.sys = g.drift(r.sys, 3, MinSystolic, MaxSystolic)
	r.dia = g.drift(r.dia, 2, MinDiastolic, MaxDiastolic)
	r.spo2 = g.drift(r.spo2, 1, MinSpO2, MaxSpO2)
	return models.Vitals{
		PatientID:     last.PatientID,
		HeartRate:     strconv.Itoa(r.hr),
		BloodPressure: fmt.Sprintf("%d/%d", r.sys, r.dia),
		SpO2:          strconv.Itoa(r.spo2),
		CapturedAt:    now.UTC().Format(time.RFC3339),
	}
}

// Poller records a fresh reading every interval until its context ends.
type Poller struct {
	client    api.Client
	patientID string
	interval  time.Duration
	gen       *Generator
	notify    notifier.Notifier

	// OnReading is called after each successful write.
	OnReading func(models.Vitals)

	mu   sync.Mutex
	last models.Vitals
}

// NewPoller returns a poller seeded with last. A zero interval uses the default.
func NewPoller(client api.Client, patientID string, interval time.Duration, last models.Vitals, n notifier.Notifier) *Poller {
	if interval <= 0 {
		interval = constants.DefaultVitalsPeriod
	}
	if n == nil {
		n = notifier.Discard{}
	}
	last.PatientID = patientID
	return &Poller{
		client:    client,
		patientID: patientID,
		interval:  interval,
		gen:       NewGenerator(uint64(time.Now().UnixNano())),
		notify:    n,
		last:      last,
	}
}

func (p *Poller) Last() models.Vitals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run blocks until ctx is cancelled. A failed write is logged every time
// but surfaced only once per run of consecutive failures.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			logger.Debug("vitals poller stopped", "patient_id", p.patientID)
			return
		case now := <-ticker.C:
			next := p.gen.Next(p.Last(), now)
			if err := p.client.RecordVitals(ctx, next); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("failed to record vitals", "patient_id", p.patientID, "error", err)
				if !failing {
					_ = p.notify.Notify(notifier.LevelError, "Failed to record vitals: "+err.Error())
				}
				failing = true
				continue
			}
			failing = false
			p.mu.Lock()
			p.last = next
			p.mu.Unlock()
			if p.OnReading != nil {
				p.OnReading(next)
			}
		}
	}
}
