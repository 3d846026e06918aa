// Package ingest runs the NATS consumer that turns incoming JPEG
// envelopes into archived tracks.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"quickroute/internal/extractor"
	"quickroute/internal/jpeg"
	"quickroute/internal/log"
	"quickroute/internal/metrics"
	"quickroute/internal/qrt"
	"quickroute/internal/storage"
)

// Envelope is one ingest request. Data carries the JPEG bytes inline
// (base64 in the JSON encoding); Path points at a file readable by the
// daemon. Data wins when both are set.
type Envelope struct {
	Source string `json:"source"`
	Data   []byte `json:"data,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Result is published on the result subject after each envelope.
type Result struct {
	Source  string                  `json:"source"`
	TrackID int64                   `json:"track_id,omitempty"`
	Summary *extractor.TrackSummary `json:"summary,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Config holds the consumer settings.
type Config struct {
	URL           string // NATS server URL.
	Subject       string // Subject carrying ingest envelopes.
	Queue         string // Queue group; instances share the load.
	ResultSubject string // Where decode results go; empty disables publishing.
	MetricsPort   int    // Prometheus /metrics port; 0 disables the listener.
}

// DefaultConfig returns the consumer defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Subject:       "quickroute.ingest",
		Queue:         "quickroute-ingest",
		ResultSubject: "quickroute.decoded",
		MetricsPort:   9091,
	}
}

// Consumer subscribes to the ingest subject and archives every track
// it can decode.
type Consumer struct {
	cfg       Config
	store     storage.Store
	waypoints *storage.ClickHouseDB // Optional columnar sink.
	metrics   *metrics.Metrics

	conn       *nats.Conn
	sub        *nats.Subscription
	metricsSrv *http.Server
}

// NewConsumer creates a consumer. waypoints may be nil when no
// ClickHouse sink is configured; m may be nil to disable
// instrumentation.
func NewConsumer(cfg Config, store storage.Store, waypoints *storage.ClickHouseDB, m *metrics.Metrics) *Consumer {
	return &Consumer{
		cfg:       cfg,
		store:     store,
		waypoints: waypoints,
		metrics:   m,
	}
}

// Start connects to NATS and begins consuming. It returns once the
// subscription is active.
func (c *Consumer) Start() error {
	conn, err := nats.Connect(c.cfg.URL,
		nats.Name("quickroute-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	c.conn = conn

	sub, err := conn.QueueSubscribe(c.cfg.Subject, c.cfg.Queue, c.handleMessage)
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe to %s: %w", c.cfg.Subject, err)
	}
	c.sub = sub

	if c.cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		c.metricsSrv = &http.Server{
			Addr:    ":" + strconv.Itoa(c.cfg.MetricsPort),
			Handler: mux,
		}
		go func() {
			if err := c.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	log.Logger.Info("ingest consumer started",
		zap.String("url", c.cfg.URL),
		zap.String("subject", c.cfg.Subject),
		zap.String("queue", c.cfg.Queue))

	return nil
}

// Stop drains the subscription, stops the metrics listener and closes
// the connection. In-flight handlers finish before Drain returns.
func (c *Consumer) Stop() {
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Logger.Warn("drain subscription", zap.Error(err))
		}
	}
	if c.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.metricsSrv.Shutdown(ctx); err != nil {
			log.Logger.Warn("stop metrics listener", zap.Error(err))
		}
	}
	if c.conn != nil {
		c.conn.Close()
	}
	log.Logger.Info("ingest consumer stopped")
}

func (c *Consumer) handleMessage(msg *nats.Msg) {
	if c.metrics != nil {
		c.metrics.RecordReceived()
	}

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Logger.Warn("bad envelope", zap.Error(err))
		if c.metrics != nil {
			c.metrics.RecordDecodeFailure(0)
		}
		c.publishResult(Result{Error: "invalid envelope: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res := c.process(ctx, env)
	if res.Error != "" {
		log.Logger.Warn("ingest failed",
			zap.String("source", env.Source),
			zap.String("error", res.Error))
	} else {
		log.Logger.Info("track archived",
			zap.String("source", env.Source),
			zap.Int64("track_id", res.TrackID),
			zap.Int("waypoints", res.Summary.WaypointCount))
	}
	c.publishResult(res)
}

// process decodes and archives one envelope.
func (c *Consumer) process(ctx context.Context, env Envelope) Result {
	res := Result{Source: env.Source}
	start := time.Now()

	data := env.Data
	if len(data) == 0 && env.Path != "" {
		b, err := os.ReadFile(env.Path)
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordDecodeFailure(time.Since(start).Seconds())
			}
			res.Error = "read " + env.Path + ": " + err.Error()
			return res
		}
		data = b
	}
	if len(data) == 0 {
		if c.metrics != nil {
			c.metrics.RecordDecodeFailure(time.Since(start).Seconds())
		}
		res.Error = "envelope carries neither data nor path"
		return res
	}

	payload, err := jpeg.ExtractPayload(bytes.NewReader(data))
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordDecodeFailure(time.Since(start).Seconds())
		}
		res.Error = err.Error()
		return res
	}

	doc, err := qrt.Decode(payload)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordDecodeFailure(time.Since(start).Seconds())
		}
		res.Error = err.Error()
		return res
	}

	summary := extractor.Summarize(doc)
	if c.metrics != nil {
		c.metrics.RecordDecoded(time.Since(start).Seconds(), summary.WaypointCount)
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	id, err := c.store.Insert(ctx, storage.InsertParams{
		Source:       env.Source,
		Summary:      summary,
		DocumentJSON: string(docJSON),
		Payload:      payload,
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordStoreFailure()
		}
		res.Error = "archive: " + err.Error()
		return res
	}
	if c.metrics != nil {
		c.metrics.RecordStored()
	}

	if c.waypoints != nil {
		rows := extractor.Rows(doc)
		if err := c.waypoints.InsertWaypoints(ctx, id, rows); err != nil {
			// The track is archived; the columnar copy can be rebuilt.
			log.Logger.Warn("waypoint batch failed",
				zap.Int64("track_id", id),
				zap.Error(err))
		}
	}

	res.TrackID = id
	res.Summary = &summary
	return res
}

func (c *Consumer) publishResult(res Result) {
	if c.cfg.ResultSubject == "" || c.conn == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.conn.Publish(c.cfg.ResultSubject, data); err != nil {
		log.Logger.Warn("publish result", zap.Error(err))
	}
}
