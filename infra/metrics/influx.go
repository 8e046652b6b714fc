package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evslot/core/metrics"
	"github.com/kilianp07/evslot/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving observations.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes import batches and charge observations to InfluxDB using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordImport writes a summary point for the batch.
func (s *InfluxSink) RecordImport(ev coremetrics.ImportEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("import_batch").
		AddTag("batch_id", ev.BatchID).
		AddTag("failed", strconv.FormatBool(ev.Failed)).
		AddField("imported", ev.Imported).
		AddField("skipped", ev.Skipped).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCharge writes one vehicle_charge point per observation in a single
// request.
func (s *InfluxSink) RecordCharge(obs []coremetrics.ChargeObservation) error {
	if len(obs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(obs))
	for _, o := range obs {
		points = append(points, write.NewPointWithMeasurement("vehicle_charge").
			AddTag("plate", o.Plate).
			AddTag("context", o.Context).
			AddField("current_charge", o.CurrentCharge).
			AddField("total_charge", o.TotalCharge).
			AddField("percent", round3(percent(o.CurrentCharge, o.TotalCharge))).
			AddField("ready", o.Ready).
			SetTime(o.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close flushes and releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func percent(current, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(current) * 100 / float64(total)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
