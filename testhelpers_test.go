//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/atollstay/service-reservation/internal/application"
	"github.com/atollstay/service-reservation/internal/domain/pricing"
	"github.com/atollstay/service-reservation/internal/events"
	"github.com/atollstay/service-reservation/internal/platform/database"
	"github.com/atollstay/service-reservation/internal/platform/kafka"
	"github.com/atollstay/service-reservation/internal/platform/metrics"
	"github.com/atollstay/service-reservation/internal/repository"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testDB holds a migrated PostgreSQL container.
type testDB struct {
	DB      *gorm.DB
	Cleanup func()
}

// reservationStack holds wired-up reservation service components.
type reservationStack struct {
	Reservations *application.ReservationService
	Availability *application.AvailabilityService
	Consumer     *events.PaymentEventConsumer
	Cleanup      func()
}

// catalog is one seeded hotel with a single priced room type.
type catalog struct {
	HotelID    uuid.UUID
	RoomTypeID uuid.UUID
}

// setupPostgres starts PostgreSQL, connects through the service's own
// Connect and applies the real migrations.
func setupPostgres(t *testing.T) *testDB {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_reservation",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_reservation",
		SSLMode:  "disable",
	}

	// Poll until the database actually accepts connections.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), "migrations", logger))

	return &testDB{
		DB: db,
		Cleanup: func() {
			if err := pgContainer.Terminate(ctx); err != nil {
				t.Logf("failed to terminate PostgreSQL container: %v", err)
			}
		},
	}
}

// setupKafka starts Kafka and pre-creates the service topics.
func setupKafka(t *testing.T) ([]string, func()) {
	t.Helper()
	ctx := context.Background()

	// confluent-local supports KRaft natively.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, events.TopicPaymentEvents, "reservation.events")

	return brokers, func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	}
}

// setupReservationStack wires the service against db. Without brokers no
// events are published and Consumer is nil.
func setupReservationStack(t *testing.T, db *gorm.DB, brokers []string) *reservationStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	recorder := metrics.NewRecorder()

	roomTypes := repository.NewGormRoomTypeRepository(db)
	allotments := repository.NewGormAllotmentRepository(db)
	resolver := application.NewPriceResolver(repository.NewGormSeasonRepository(db), pricing.NewStandardCalculator())
	availability := application.NewAvailabilityService(roomTypes, allotments, resolver, "USD", recorder, logger)

	stack := &reservationStack{Availability: availability, Cleanup: func() {}}

	var publisher application.EventPublisher
	if len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, logger)
		publisher = producer
		stack.Cleanup = func() { _ = producer.Close() }
	}

	stack.Reservations = application.NewReservationService(
		repository.NewGormUnitOfWork(db, 15*time.Second),
		repository.NewGormReservationRepository(db),
		roomTypes,
		availability,
		publisher,
		recorder,
		logger,
	)

	if len(brokers) > 0 {
		groupID := fmt.Sprintf("test-reservation-%s", uuid.New().String()[:8])
		stack.Consumer = events.NewPaymentEventConsumer(brokers, groupID, stack.Reservations, logger)
	}
	return stack
}

// seedCatalog inserts a hotel room type with inventory rooms and a USD season
// covering all of 2026 at nightly.
func seedCatalog(t *testing.T, db *gorm.DB, inventory int, nightly string) catalog {
	t.Helper()
	now := time.Now().UTC()
	c := catalog{HotelID: uuid.New(), RoomTypeID: uuid.New()}

	require.NoError(t, db.Create(&repository.RoomTypeModel{
		ID:             c.RoomTypeID,
		HotelID:        c.HotelID,
		Name:           "Water Villa",
		InventoryCount: inventory,
		MaxGuests:      2,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error)

	seasonID := uuid.New()
	require.NoError(t, db.Create(&repository.SeasonModel{
		ID:        seasonID,
		Name:      "Year 2026",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Active:    true,
		CreatedAt: now,
	}).Error)

	require.NoError(t, db.Create(&repository.SeasonalPriceModel{
		ID:           uuid.New(),
		RoomTypeID:   c.RoomTypeID,
		SeasonID:     seasonID,
		Currency:     "USD",
		NightlyPrice: decimal.RequireFromString(nightly),
		MinNights:    1,
		Active:       true,
		CreatedAt:    now,
	}).Error)

	return c
}

func bookingRequest(c catalog, checkIn, checkOut string, qty int, email string) application.CreateReservationRequest {
	return application.CreateReservationRequest{
		HotelID:    c.HotelID,
		RoomTypeID: c.RoomTypeID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     2,
		RoomQty:    qty,
		Guest: application.GuestRequest{
			FirstName: "Aishath",
			LastName:  "Rasheed",
			Email:     email,
		},
	}
}

// bookedRooms returns booked_rooms per date for a room type.
func bookedRooms(t *testing.T, db *gorm.DB, roomTypeID uuid.UUID) map[string]int {
	t.Helper()
	var rows []repository.DailyAllotmentModel
	require.NoError(t, db.Where("room_type_id = ?", roomTypeID).Order("date").Find(&rows).Error)
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Date.Format("2006-01-02")] = r.BookedRooms
	}
	return out
}

// waitForReservationStatus polls the reservations table until the status matches.
func waitForReservationStatus(t *testing.T, db *gorm.DB, id uuid.UUID, expectedStatus string, timeout time.Duration) repository.ReservationModel {
	t.Helper()
	var result repository.ReservationModel
	require.Eventually(t, func() bool {
		var model repository.ReservationModel
		if err := db.Where("id = ?", id).First(&model).Error; err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "reservation did not transition to %s", expectedStatus)
	return result
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
