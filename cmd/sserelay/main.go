// Binary sserelay consumes a single SSE stream and republishes every
// received event to NATS JetStream. Resume position is kept in a pluggable
// store so the relay continues from the last seen event after restarts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/advbet/sseclient"
	"github.com/advbet/sseclient/pgstore"
	"github.com/advbet/sseclient/sqlitestore"
)

// config is loaded from the environment on startup.
type config struct {
	URL      string        `env:"RELAY_URL,required"`
	Events   []string      `env:"RELAY_EVENTS" envSeparator:","`
	Username string        `env:"RELAY_USERNAME"`
	Password string        `env:"RELAY_PASSWORD"`
	Retry    time.Duration `env:"RELAY_RETRY" envDefault:"3s"`

	NATSURL string `env:"RELAY_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	Stream  string `env:"RELAY_STREAM" envDefault:"SSERELAY"`
	Subject string `env:"RELAY_SUBJECT_PREFIX" envDefault:"sse"`

	Driver      string `env:"RELAY_STORE" envDefault:"memory"`
	StorePath   string `env:"RELAY_STORE_PATH" envDefault:"sserelay.state"`
	PostgresURL string `env:"RELAY_POSTGRES_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid log level")
	}
	logrus.SetLevel(level)

	runID := uuid.NewString()
	log := logrus.WithField("run", runID)

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Fatal("store setup failed")
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("sserelay"))
	if err != nil {
		log.WithError(err).Fatal("NATS connection failed")
	}
	defer nc.Drain()

	js, err := nc.JetStream()
	if err != nil {
		log.WithError(err).Fatal("JetStream context failed")
	}
	if err := ensureStream(js, cfg.Stream, cfg.Subject); err != nil {
		log.WithError(err).Fatal("JetStream stream setup failed")
	}

	r := &relay{
		id:      runID,
		js:      js,
		subject: cfg.Subject,
		log:     log,
	}

	headers := map[string]string{}
	if cfg.Username != "" {
		headers["Authorization"] = sseclient.BasicAuth(cfg.Username, cfg.Password)
	}

	client := sseclient.New(cfg.URL, sseclient.Config{
		Headers: headers,
		Retry:   cfg.Retry,
		Store:   store,
		Logger:  log,
	})
	defer client.Close()

	client.OnOpen(func() { log.Info("stream open") })
	client.OnError(func(err error) { log.WithError(err).Warn("stream failed") })
	client.OnMessage(r.forward)
	for _, event := range cfg.Events {
		client.AddEventListener(event, r.forward)
	}
	client.Connect()

	log.WithFields(logrus.Fields{
		"url":    cfg.URL,
		"stream": cfg.Stream,
		"events": cfg.Events,
		"store":  cfg.Driver,
	}).Info("relay started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
}

// openStore creates the last event ID store selected by the configuration.
func openStore(ctx context.Context, cfg config) (sseclient.Store, error) {
	switch cfg.Driver {
	case "memory":
		return sseclient.NewMemoryStore(), nil
	case "file":
		return sseclient.NewFileStore(cfg.StorePath), nil
	case "sqlite":
		return sqlitestore.Open(cfg.StorePath)
	case "postgres":
		return pgstore.Open(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
