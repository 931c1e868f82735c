package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/wirefree.go/pkg/bus"
	"github.com/robotalks/wirefree.go/pkg/framework"
	"github.com/robotalks/wirefree.go/pkg/serial"
	"github.com/robotalks/wirefree.go/pkg/telemetry"
)

func init() {
	serial.SetupFlags()
	telemetry.SetupFlags()
	bus.SetupFlags()
}

func readingsHandler(latest *telemetry.Latest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs := make([]*bus.Message, 0)
		for _, reading := range latest.All() {
			msgs = append(msgs, bus.NewMessage("", reading))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(msgs); err != nil {
			glog.Warningf("readings: %v", err)
		}
	}
}

func serveMetrics(addr string, latest *telemetry.Latest) framework.Runnable {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/readings", readingsHandler(latest))
	srv := &http.Server{Addr: addr, Handler: mux}
	return framework.NamedRun("metrics", framework.RunFunc(func(ctx context.Context) error {
		glog.Infof("metrics: listening on %s", addr)
		return framework.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
	}))
}

func main() {
	flag.Parse()
	defer glog.Flush()

	port, err := serial.Default().Open()
	if err != nil {
		glog.Exitf("open %s: %v", serial.Default().Name, err)
	}
	defer port.Close()

	conf := telemetry.Default()
	latest := telemetry.NewLatest()
	sinks := telemetry.Sinks{latest}
	if busConf := bus.Default(); busConf.Enabled() {
		fwd, err := busConf.NewForwarder()
		if err != nil {
			glog.Exitf("bus: %v", err)
		}
		defer fwd.Publisher.Close()
		sinks = append(sinks, fwd)
	}

	monitor := telemetry.NewMonitor(port.Telemetry(), sinks, conf.ByteTimeout)
	monitor.Stats = telemetry.NewStats(prometheus.DefaultRegisterer)

	runner := framework.NewRunner().HandleSignals().Go(monitor)
	if conf.MetricsAddr != "" {
		runner.Go(serveMetrics(conf.MetricsAddr, latest))
	}
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
