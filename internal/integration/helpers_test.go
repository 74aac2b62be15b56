//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/couchcryptid/covid-data-service/internal/adapter/source"
	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	casesCSV = "date,state,fips,cases,deaths\n" +
		"2024-01-01,California,06,100,1\n" +
		"2024-01-01,New York,36,80,1\n" +
		"2024-01-02,California,06,150,2\n" +
		"2024-01-02,New York,36,200,3\n"
	vaccCSV = "date,location,total_vaccinations\n" +
		"2024-01-02,California,1000\n" +
		"2024-01-02,New York,2000\n"
	lookupCSV = "state,abbreviation\n" +
		"California,CA\n" +
		"New York,NY\n"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// feedServer serves the three CSV fixtures and counts requests.
type feedServer struct {
	*httptest.Server
	hits atomic.Int32
}

func startFeeds(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{}
	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			fs.hits.Add(1)
			w.Header().Set("Content-Type", "text/csv")
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc("/us-states.csv", serve(casesCSV))
	mux.HandleFunc("/us_state_vaccinations.csv", serve(vaccCSV))
	mux.HandleFunc("/state_abbrev.csv", serve(lookupCSV))
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) feeds() source.Feeds {
	return source.DefaultFeeds(
		fs.URL+"/us-states.csv",
		fs.URL+"/us_state_vaccinations.csv",
		fs.URL+"/state_abbrev.csv",
	)
}

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	kc, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("covid-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(kc) })

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}

func kafkaConfig(broker, topic string) *config.Config {
	return &config.Config{
		KafkaEnabled: true,
		KafkaBrokers: []string{broker},
		KafkaTopic:   topic,
	}
}
