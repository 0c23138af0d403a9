package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"github.com/sanLimbu/esindex/cmd/internal"
	"github.com/sanLimbu/esindex/internal/envvar"
	"github.com/sanLimbu/esindex/internal/indexer"
)

const (
	serviceName     = "elasticsearch-indexer-kafka"
	consumerGroupID = "elasticsearch-indexer"
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
		return nil, fmt.Errorf("zap.NewProduction %w", err)
	}

	if env != "" {
		if err := envvar.Load(env); err != nil {
			return nil, fmt.Errorf("envvar.Load %w", err)
		}
	}

	vault, err := internal.NewVaultProvider()
	if err != nil {
		return nil, fmt.Errorf("internal.NewVaultProvider %w", err)
	}

	conf := envvar.New(vault)

	if _, err = internal.NewOTExporter(conf, serviceName); err != nil {
		return nil, fmt.Errorf("internal.NewOTExporter %w", err)
	}

	esConf, err := internal.ElasticsearchConfig(conf)
	if err != nil {
		return nil, fmt.Errorf("internal.ElasticsearchConfig %w", err)
	}

	idx, err := internal.NewElasticsearch(context.Background(), esConf, logger)
	if err != nil {
		return nil, fmt.Errorf("internal.NewElasticsearch %w", err)
	}

	consumer, err := internal.NewKafkaConsumer(conf, consumerGroupID)
	if err != nil {
		return nil, fmt.Errorf("internal.NewKafkaConsumer %w", err)
	}

	srv := &Server{
		logger:  logger,
		kafka:   consumer,
		indexer: indexer.New(idx, logger),
		doneC:   make(chan struct{}),
		closeC:  make(chan struct{}),
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
			_ = consumer.Consumer.Unsubscribe()
			_ = consumer.Consumer.Close()
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

//Server consumes document events from Kafka and applies them to the index.
type Server struct {
	logger  *zap.Logger
	kafka   *internal.KafkaConsumer
	indexer *indexer.Indexer
	doneC   chan struct{}
	closeC  chan struct{}
}

//ListenAndServe polls messages until Shutdown is called. Offsets are committed for applied and
//malformed messages. On a retryable failure the consumer seeks back to the failed offset, so
//nothing after it is committed until it is applied.
func (s *Server) ListenAndServe() error {
	commit := func(msg *kafka.Message) {
		if _, err := s.kafka.Consumer.CommitMessage(msg); err != nil {
			s.logger.Error("commit failed", zap.Error(err))
		}
	}

	go func() {
		run := true

		for run {
			select {
			case <-s.closeC:
				run = false
			default:
				msg, ok := s.kafka.Consumer.Poll(150).(*kafka.Message)
				if !ok {
					continue
				}

				if s.indexer.Handle(context.Background(), msg.Value) == indexer.Retry {
					if err := s.kafka.Consumer.Seek(msg.TopicPartition, 0); err != nil {
						s.logger.Error("seek failed", zap.Error(err))
					}

					continue
				}

				commit(msg)
			}
		}

		s.logger.Info("No more messages to consume. Exiting.")

		s.doneC <- struct{}{}
	}()

	return nil
}

//Shutdown ...
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	close(s.closeC)

	select {
	case <-ctx.Done():
		return fmt.Errorf("context.Done: %w", ctx.Err())
	case <-s.doneC:
		return nil
	}
}
