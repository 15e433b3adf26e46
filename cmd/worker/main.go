// The worker consumes job envelopes from kafka and runs the bulk
// operations against their Task records.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/config"
	"github.com/duonguwu/notification-bot/kafka"
	"github.com/duonguwu/notification-bot/models"
	"github.com/duonguwu/notification-bot/tasks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrateAll(db); err != nil {
		log.Fatalf("Failed to auto-migrate database: %v", err)
	}

	saramaConfig, err := kafka.NewSaramaConfig(&cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to build kafka config: %v", err)
	}

	handler := kafka.NewJobHandler(
		tasks.NewImportCustomersRunner(db),
		tasks.NewSendNotificationRunner(db),
	)
	consumer, err := kafka.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.GroupID,
		[]string{cfg.Kafka.JobsTopic},
		saramaConfig,
		handler,
	)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		log.Println("Shutting down worker")
		cancel()
	}()

	log.Printf("Worker consuming from %s", cfg.Kafka.JobsTopic)
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Consumer stopped with error: %v", err)
	}
}
