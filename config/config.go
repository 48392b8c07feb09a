package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTAccessSecret   string
	JWTAccessTTLHours int

	// ✅ Redis Config
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ✅ CMI Payment Gateway
	CMIClientID    string // merchant id assigned by CMI
	CMIStoreKey    string // shared secret used for the hash
	CMIGatewayURL  string // hosted payment page the form posts to
	CMIOkURL       string // browser redirect on success
	CMIFailURL     string // browser redirect on failure
	CMICallbackURL string // server-to-server callback endpoint

	// ✅ Kafka Config
	KafkaBrokers string
	KafkaTopic   string

	// ✅ SMTP Config
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromName  string
	SMTPFromEmail string

	// Booking rules
	CancelCutoffHours int
}

// Load reads environment variables and returns a Config object
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using environment variables")
	}

	accessTTL, _ := strconv.Atoi(os.Getenv("JWT_ACCESS_TTL_HOURS"))
	if accessTTL == 0 {
		accessTTL = 24
	}
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	cutoff, _ := strconv.Atoi(os.Getenv("BOOKING_CANCEL_CUTOFF_HOURS"))
	if cutoff == 0 {
		cutoff = 24
	}

	kafkaTopic := os.Getenv("KAFKA_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "booking-events"
	}

	return &Config{
		Port: os.Getenv("PORT"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		JWTAccessSecret:   os.Getenv("JWT_ACCESS_SECRET"),
		JWTAccessTTLHours: accessTTL,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		CMIClientID:    os.Getenv("CMI_CLIENT_ID"),
		CMIStoreKey:    os.Getenv("CMI_STORE_KEY"),
		CMIGatewayURL:  os.Getenv("CMI_GATEWAY_URL"),
		CMIOkURL:       os.Getenv("CMI_OK_URL"),
		CMIFailURL:     os.Getenv("CMI_FAIL_URL"),
		CMICallbackURL: os.Getenv("CMI_CALLBACK_URL"),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   kafkaTopic,

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      os.Getenv("SMTP_PORT"),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFromName:  os.Getenv("SMTP_FROM_NAME"),
		SMTPFromEmail: os.Getenv("SMTP_FROM_EMAIL"),

		CancelCutoffHours: cutoff,
	}
}
