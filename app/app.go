package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/hoteldesk/backoffice-service/config"
	"github.com/hoteldesk/backoffice-service/internal/handler"
	"github.com/hoteldesk/backoffice-service/internal/server"
	"github.com/hoteldesk/backoffice-service/pkg/kafka"
	"github.com/hoteldesk/backoffice-service/pkg/logger"
)

func Run(cfg config.Config) {
	log := logger.NewLogger(cfg.Log, "backoffice")

	var producer sarama.AsyncProducer
	if cfg.Kafka.Enabled() {
		var err error
		if producer, err = kafka.NewAsyncProducer(cfg.Kafka); err != nil {
			log.DPanic("kafka", zap.Error(err))
		}
	}
	h := handler.New(log, cfg, producer)

	poller := handler.NewPoller(cfg.Poll.Interval, log, h.Refresh)
	poller.Start(context.Background())

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	poller.Stop()

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if producer != nil {
		_ = producer.Close()
	}
	log.Info("Graceful shutdown finished")
}
