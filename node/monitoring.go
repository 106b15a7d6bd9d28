package node

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ipswyworld/ouroboros/runtime"
)

// monitoringService exposes prometheus metrics and a health endpoint backed
// by the service registry's statuses.
type monitoringService struct {
	server   *http.Server
	registry *runtime.ServiceRegistry
	failed   error
}

func newMonitoringService(addr string, registry *runtime.ServiceRegistry) *monitoringService {
	svc := &monitoringService{registry: registry}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", svc.healthzHandler)
	svc.server = &http.Server{Addr: addr, Handler: mux}
	return svc
}

func (s *monitoringService) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	code := http.StatusOK
	var body string
	for kind, status := range s.registry.Statuses() {
		if status != nil {
			code = http.StatusServiceUnavailable
			body += fmt.Sprintf("%v: unhealthy: %v\n", kind, status)
		} else {
			body += fmt.Sprintf("%v: ok\n", kind)
		}
	}
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		log.WithError(err).Error("Could not write healthz response")
	}
}

func (s *monitoringService) Start() {
	log.WithField("address", s.server.Addr).Info("Starting monitoring endpoint")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("Monitoring endpoint failed")
		s.failed = err
	}
}

func (s *monitoringService) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *monitoringService) Status() error {
	return s.failed
}
