package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanLimbu/esindex/cmd/internal"
	internaldomain "github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/envvar"
	"github.com/sanLimbu/esindex/internal/indexer"
	"github.com/sanLimbu/esindex/internal/rabbitmq"
)

const (
	serviceName          = "elasticsearch-indexer-rabbitmq"
	rabbitMQConsumerName = "elasticsearch-indexer"
	rabbitMQQueueName    = "elasticsearch-indexer"
)

func main() {
	var env string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.Parse()

	errC, err := run(env)
	if err != nil {
		log.Fatalf("Couldn't run: %s", err)
	}

	if err := <-errC; err != nil {
		log.Fatalf("Error while running: %s", err)
	}
}

func run(env string) (<-chan error, error) {
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

	if _, err = internal.NewOTExporter(conf, serviceName); err != nil {
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

	rmq, err := internal.NewRabbitMQ(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewRabbitMQ")
	}

	srv := &Server{
		logger:  logger,
		rmq:     rmq,
		indexer: indexer.New(idx, logger),
		done:    make(chan struct{}),
	}

	errC := make(chan error, 1)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		<-ctx.Done()

		logger.Info("Shutdown signal received")

		ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		defer func() {
			_ = logger.Sync()
			rmq.Close()
			stop()
			cancel()
			close(errC)
		}()

		if err := srv.Shutdown(ctxTimeout); err != nil {
			errC <- err
		}

		logger.Info("Shutdown completed")
	}()

	go func() {
		logger.Info("Listening and serving")

		if err := srv.ListenAndServe(); err != nil {
			errC <- err
		}
	}()

	return errC, nil
}

//Server consumes document events from RabbitMQ and applies them to the index.
type Server struct {
	logger  *zap.Logger
	rmq     *internal.RabbitMQ
	indexer *indexer.Indexer
	done    chan struct{}
}

//ListenAndServe ...
func (s *Server) ListenAndServe() error {
	queue, err := s.rmq.Channel.QueueDeclare(
		rabbitMQQueueName, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "channel.QueueDeclare")
	}

	err = s.rmq.Channel.QueueBind(
		queue.Name,            // queue name
		"documents.event.*",   // routing key
		rabbitmq.ExchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "channel.QueueBind")
	}

	msgs, err := s.rmq.Channel.Consume(
		queue.Name,           // queue
		rabbitMQConsumerName, // consumer
		false,                // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "channel.Consume")
	}

	go func() {
		for msg := range msgs {
			s.logger.Info("Received message", zap.String("routing_key", msg.RoutingKey))

			switch s.indexer.Handle(context.Background(), msg.Body) {
			case indexer.Done:
				_ = msg.Ack(false)
			case indexer.Retry:
				_ = msg.Nack(false, true)
			default:
				_ = msg.Nack(false, false)
			}
		}

		s.logger.Info("No more messages to consume. Exiting.")

		s.done <- struct{}{}
	}()

	return nil
}

//Shutdown ...
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	_ = s.rmq.Channel.Cancel(rabbitMQConsumerName, false)

	select {
	case <-ctx.Done():
		return internaldomain.WrapErrorf(ctx.Err(), internaldomain.ErrorCodeUnknown, "context.Done")
	case <-s.done:
		return nil
	}
}
