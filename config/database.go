package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
	// Do NOT block startup in init() waiting for DB; main() connects after the port is open.
}

func databaseDSN() string {
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")

	network := "tcp"
	address := fmt.Sprintf("%s:%s", dbHost, dbPort)

	// Cloud SQL: DB_HOST=/cloudsql/<CONNECTION_NAME> connects through the proxy's unix socket.
	if strings.HasPrefix(dbHost, "/cloudsql/") {
		network = "unix"
		address = dbHost
	}

	// loc=UTC keeps created_at comparisons in UTC; daily log windows are converted before querying.
	return fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4",
		dbUser,
		dbPassword,
		network,
		address,
		dbName,
	)
}

// ConnectDatabaseWithRetry connects and sets the global DB.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry() {
	dsn := databaseDSN()

	var attempt int
	for {
		attempt++
		conn, err := OpenDatabase(dsn)
		if err == nil {
			SetDB(conn)
			log.Printf("connected to database (attempt=%d)", attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// OpenDatabase opens a pooled handle with the ledger plugins installed.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(dsn), initConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(intFromEnv("DB_MAX_OPEN_CONNS", 50))
	sqlDB.SetMaxIdleConns(intFromEnv("DB_MAX_IDLE_CONNS", 25))
	sqlDB.SetConnMaxLifetime(time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second)

	if err := conn.Use(otelgorm.NewPlugin()); err != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", err)
	}
	// The tenant guard is mandatory; a handle without it must not serve requests.
	if err := conn.Use(NewTenantGuardPlugin()); err != nil {
		return nil, fmt.Errorf("install tenant guard: %w", err)
	}
	return conn, nil
}

// SetDB replaces the global handle (tools and integration tests).
func SetDB(conn *gorm.DB) {
	db = conn
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: &schema.NamingStrategy{SingularTable: false},
		// Ledger operations open their own transactions; single writes do not need an implicit one.
		SkipDefaultTransaction: true,
	}
}

func initLog() logger.Interface {
	level := logger.Error
	if EnvTrue("GORM_DEBUG") {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      level,
			SlowThreshold: time.Second,
		},
	)
}
