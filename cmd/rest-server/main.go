package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"

	"github.com/sanLimbu/esindex/cmd/internal"
	internaldomain "github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/elasticsearch"
	"github.com/sanLimbu/esindex/internal/envvar"
	"github.com/sanLimbu/esindex/internal/kafka"
	"github.com/sanLimbu/esindex/internal/rabbitmq"
	"github.com/sanLimbu/esindex/internal/rest"
	"github.com/sanLimbu/esindex/internal/service"
)

const serviceName = "esindex-rest-server"

func main() {
	var env, address string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.StringVar(&address, "address", ":9234", "HTTP Server Address")
	flag.Parse()

	errC, err := run(env, address)
	if err != nil {
		log.Fatalf("Couldn't run: %s", err)
	}

	if err := <-errC; err != nil {
		log.Fatalf("Error while running: %s", err)
	}
}

func run(env, address string) (<-chan error, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "zap.NewProduction")
	}

	if env != "" {
		if err := envvar.Load(env); err != nil {
			return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "envvar.Load")
		}
	}

	vault, err := internal.NewVaultProvider()
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewVaultProvider")
	}

	conf := envvar.New(vault)

	promExporter, err := internal.NewOTExporter(conf, serviceName)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewOTExporter")
	}

	esConf, err := internal.ElasticsearchConfig(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.ElasticsearchConfig")
	}

	idx, err := internal.NewElasticsearch(context.Background(), esConf, logger)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewElasticsearch")
	}

	msgBroker, closeBroker, err := newMessageBroker(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "newMessageBroker")
	}

	logging := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set("X-Request-ID", requestID)

			logger.Info(r.Method,
				zap.Time("time", time.Now()),
				zap.String("url", r.URL.String()),
				zap.String("request_id", requestID),
			)

			h.ServeHTTP(w, r)
		})
	}

	srv := newServer(serverConfig{
		Address:     address,
		Index:       idx,
		MsgBroker:   msgBroker,
		Middlewares: []func(next http.Handler) http.Handler{otelchi.Middleware(serviceName), logging},
	})

	errC := make(chan error, 1)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		<-ctx.Done()

		logger.Info("Shutdown signal received")

		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		defer func() {
			_ = logger.Sync()

			closeBroker()
			_ = promExporter.Shutdown(context.Background())
			stop()
			cancel()
			close(errC)
		}()

		srv.SetKeepAlivesEnabled(false)

		if err := srv.Shutdown(ctxTimeout); err != nil {
			errC <- err
		}

		logger.Info("Shutdown completed")
	}()

	go func() {
		logger.Info("Listening and serving", zap.String("address", address))

		// "ListenAndServe always returns a non-nil error. After Shutdown or Close, the returned error is
		// ErrServerClosed."
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	return errC, nil
}

//newMessageBroker picks the publisher named by MESSAGE_BROKER, Kafka by default.
func newMessageBroker(conf *envvar.Configuration) (service.DocumentMessageBrokerRepository, func(), error) {
	broker, err := conf.GetDefault("MESSAGE_BROKER", "kafka")
	if err != nil {
		return nil, nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "conf.Get MESSAGE_BROKER")
	}

	switch broker {
	case "kafka":
		producer, err := internal.NewKafkaProducer(conf)
		if err != nil {
			return nil, nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewKafkaProducer")
		}

		return kafka.NewDocument(producer.Producer, producer.Topic), func() {
			producer.Producer.Flush(5000)
			producer.Producer.Close()
		}, nil
	case "rabbitmq":
		rmq, err := internal.NewRabbitMQ(conf)
		if err != nil {
			return nil, nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewRabbitMQ")
		}

		repo, err := rabbitmq.NewDocument(rmq.Channel)
		if err != nil {
			return nil, nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "rabbitmq.NewDocument")
		}

		return repo, rmq.Close, nil
	}

	return nil, nil, internaldomain.NewErrorf(internaldomain.ErrorCodeInvalidArgument, "unknown message broker %q", broker)
}

type serverConfig struct {
	Address     string
	Index       *elasticsearch.Index
	MsgBroker   service.DocumentMessageBrokerRepository
	Middlewares []func(next http.Handler) http.Handler
}

func newServer(conf serverConfig) *http.Server {
	router := chi.NewRouter()
	router.Use(render.SetContentType(render.ContentTypeJSON))

	for _, mw := range conf.Middlewares {
		router.Use(mw)
	}

	svc := service.NewDocument(conf.Index, conf.MsgBroker)

	rest.NewDocumentHandler(svc).Register(router)

	router.Handle("/metrics", promhttp.Handler())

	lmt := tollbooth.NewLimiter(3, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Second})
	lmtmw := tollbooth.LimitHandler(lmt, router)

	return &http.Server{
		Handler:           lmtmw,
		Addr:              conf.Address,
		ReadTimeout:       1 * time.Second,
		ReadHeaderTimeout: 1 * time.Second,
		WriteTimeout:      conf.Index.Timeout() + time.Second,
		IdleTimeout:       1 * time.Second,
	}
}
