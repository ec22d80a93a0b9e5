package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

// Recorder collects deploy and verification counters in its own registry.
// They are written to a node_exporter textfile at the end of a run.
type Recorder struct {
	registry *prometheus.Registry

	deployAttempts *prometheus.CounterVec
	verifyAttempts *prometheus.CounterVec
	finalStatus    *prometheus.CounterVec
}

var _ usecase.MetricsRecorder = (*Recorder)(nil)

// NewRecorder creates a recorder with a fresh registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		deployAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "treb_deploy_attempts_total",
			Help: "Deployment transactions attempted, by result",
		}, []string{"network", "result"}),
		verifyAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "treb_verification_attempts_total",
			Help: "Verification submissions, by backend outcome",
		}, []string{"network", "outcome"}),
		finalStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "treb_deployments_total",
			Help: "Contracts processed per run, by final status",
		}, []string{"network", "status"}),
	}
	r.registry.MustRegister(r.deployAttempts, r.verifyAttempts, r.finalStatus)
	return r
}

// DeployAttempt counts one deployment transaction
func (r *Recorder) DeployAttempt(network, result string) {
	r.deployAttempts.WithLabelValues(network, result).Inc()
}

// VerificationAttempt counts one verification submission
func (r *Recorder) VerificationAttempt(network string, outcome models.VerificationOutcome) {
	r.verifyAttempts.WithLabelValues(network, string(outcome)).Inc()
}

// FinalStatus counts a contract's status at the end of a run
func (r *Recorder) FinalStatus(network string, status models.DeploymentStatus) {
	r.finalStatus.WithLabelValues(network, string(status)).Inc()
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the counters in the Prometheus text format
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
