// Package metrics exposes gameplay counters to Prometheus.
//
// Metrics implements service.MetricsRecorder for board deals and selections.
// Completions are observed by wrapping a session's presenter with Presenter,
// so the numbers come from the same ShowCompletion call the player sees.
package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wricardo/memory-match-game/game/engine"
)

const namespace = "memory_match"

// Metrics holds the game collectors
type Metrics struct {
	boardsDealt  *prometheus.CounterVec
	selections   *prometheus.CounterVec
	completions  *prometheus.CounterVec
	movesToWin   *prometheus.HistogramVec
	secondsToWin *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		boardsDealt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "boards_dealt_total",
				Help:      "Boards dealt, including restarts and difficulty changes",
			},
			[]string{"difficulty"},
		),
		selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selections_total",
				Help:      "Card selections by outcome",
			},
			[]string{"difficulty", "outcome"},
		),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_completed_total",
				Help:      "Games won",
			},
			[]string{"difficulty"},
		),
		movesToWin: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "moves_to_win",
				Help:      "Moves taken in won games",
				Buckets:   prometheus.LinearBuckets(6, 3, 12),
			},
			[]string{"difficulty"},
		),
		secondsToWin: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "seconds_to_win",
				Help:      "Elapsed time of won games",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 8),
			},
			[]string{"difficulty"},
		),
	}
	reg.MustRegister(m.boardsDealt, m.selections, m.completions, m.movesToWin, m.secondsToWin)
	return m
}

// RegisterSessionGauge exposes the live session count
func (m *Metrics) RegisterSessionGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		},
		func() float64 { return float64(count()) },
	))
}

func (m *Metrics) BoardDealt(d engine.Difficulty) {
	m.boardsDealt.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) SelectionHandled(d engine.Difficulty, o engine.Outcome) {
	m.selections.WithLabelValues(string(d), string(o)).Inc()
}

// Presenter wraps next so completions are recorded before being forwarded
func (m *Metrics) Presenter(next engine.Presenter) engine.Presenter {
	if next == nil {
		next = engine.NopPresenter{}
	}
	return &Recorder{Presenter: next, metrics: m}
}

// Recorder is an engine.Presenter decorator
type Recorder struct {
	engine.Presenter
	metrics *Metrics
}

func (r *Recorder) ShowCompletion(elapsed string, moves int, difficultyLabel string) {
	d := strings.ToLower(difficultyLabel)
	r.metrics.completions.WithLabelValues(d).Inc()
	r.metrics.movesToWin.WithLabelValues(d).Observe(float64(moves))
	if secs, ok := parseElapsed(elapsed); ok {
		r.metrics.secondsToWin.WithLabelValues(d).Observe(secs)
	}
	r.Presenter.ShowCompletion(elapsed, moves, difficultyLabel)
}

// parseElapsed reads the MM:SS form produced by engine.FormatElapsed
func parseElapsed(s string) (float64, bool) {
	mm, ss, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(ss)
	if err != nil || seconds >= 60 {
		return 0, false
	}
	return float64(minutes*60 + seconds), true
}
