package stats

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codeduel"

const (
	LoadedRooms   = "LoadedRooms"
	QueuedPlayers = "QueuedPlayers"
	MatchesMade   = "MatchesMade"
	Settlements   = "Settlements"
	RoomsCreated  = "RoomsCreated"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

type StatsUpdater struct {
	registry   *prometheus.Registry
	gauges     map[string]prometheus.Gauge
	gaugesLock sync.RWMutex
	updateChan chan *metricsUpdateReq
}

type metricsUpdateReq struct {
	name  string
	value int
}

// NewStatsUpdater creates a new stats updater instance and mounts its
// Prometheus handler on mux.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		registry:   prometheus.NewRegistry(),
		gauges:     make(map[string]prometheus.Gauge),
		updateChan: make(chan *metricsUpdateReq, 512),
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(su.registry, promhttp.HandlerOpts{}))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.registry.MustRegister(
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_milliseconds",
			Help:      "Milliseconds since the process started.",
		}, func() float64 {
			return float64(time.Since(startTime).Milliseconds())
		}),
	)
}

func (su *StatsUpdater) updateMetrics() {
	for req := range su.updateChan {
		su.gaugesLock.RLock()
		g, ok := su.gauges[req.name]
		su.gaugesLock.RUnlock()
		if !ok {
			panic("metric not found: " + req.name)
		}

		g.Add(float64(req.value))
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- &metricsUpdateReq{name: name, value: 1}
}

func (su *StatsUpdater) Decr(name string) {
	su.updateChan <- &metricsUpdateReq{name: name, value: -1}
}

// RegisterMetric creates the gauge backing name. Registering the same name
// twice is a no-op.
func (su *StatsUpdater) RegisterMetric(name string) {
	su.gaugesLock.Lock()
	defer su.gaugesLock.Unlock()

	if _, ok := su.gauges[name]; ok {
		return
	}

	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      name + " gauge.",
	})
	su.registry.MustRegister(g)
	su.gauges[name] = g
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
}
