package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one pipeline run. Each run gets its own
// registry so the textfile only carries that run.
type Metrics struct {
	Registry *prometheus.Registry

	TaskAttempts *prometheus.CounterVec
	TaskDuration *prometheus.GaugeVec
	TaskStatus   *prometheus.GaugeVec
	Rows         *prometheus.GaugeVec
	LastRun      prometheus.Gauge
	RunSucceeded prometheus.Gauge
}

// NewMetrics registers the pipeline collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		TaskAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volt_pipeline_task_attempts_total",
				Help: "Attempts per pipeline task, retries included",
			},
			[]string{"task"},
		),
		TaskDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "volt_pipeline_task_duration_seconds",
				Help: "Wall time of the last run of each task",
			},
			[]string{"task"},
		),
		TaskStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "volt_pipeline_task_success",
				Help: "1 when the task succeeded in the last run, 0 otherwise",
			},
			[]string{"task"},
		),
		Rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "volt_pipeline_rows",
				Help: "Rows handled by each stage of the last run",
			},
			[]string{"stage"},
		),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volt_pipeline_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		RunSucceeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volt_pipeline_last_run_success",
			Help: "1 when the last run succeeded",
		}),
	}
	m.Registry.MustRegister(m.TaskAttempts, m.TaskDuration, m.TaskStatus, m.Rows, m.LastRun, m.RunSucceeded)
	return m
}

func (m *Metrics) observeTask(r TaskResult) {
	m.TaskAttempts.WithLabelValues(r.Name).Add(float64(r.Attempts))
	m.TaskDuration.WithLabelValues(r.Name).Set(r.Duration.Seconds())
	ok := 0.0
	if r.Status == StatusSuccess {
		ok = 1
	}
	m.TaskStatus.WithLabelValues(r.Name).Set(ok)
}

func (m *Metrics) observeRun(rep *Report, finished time.Time) {
	for stage, n := range rep.Rows {
		m.Rows.WithLabelValues(stage).Set(float64(n))
	}
	m.LastRun.Set(float64(finished.Unix()))
	if rep.Succeeded {
		m.RunSucceeded.Set(1)
	} else {
		m.RunSucceeded.Set(0)
	}
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
