package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config — полная конфигурация проекта
type Config struct {
	Database  DBConfig
	RabbitMQ  MQConfig
	WebSocket WSConfig
	Services  ServicesConfig
	JWT       JWTConfig
	Chat      ChatConfig
	Geo       GeoConfig
	Location  LocationConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type MQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type WSConfig struct {
	Port int
}

type ServicesConfig struct {
	OutletServicePort int
}

type JWTConfig struct {
	Secret        string
	ExpiryMinutes int
}

// ChatConfig — настройки удалённого чат-бэкенда.
// Provider: "remote" (HTTP JSON API) | "gemini" (Google GenAI).
// CreateTimeoutSec намеренно больше SendTimeoutSec: первый запрос к бэкенду
// может попасть на cold start.
type ChatConfig struct {
	Provider         string
	BaseURL          string
	APIKey           string
	Model            string
	CreateTimeoutSec int
	SendTimeoutSec   int
}

// GeoConfig — параметры расчёта пересечений
type GeoConfig struct {
	IntersectionRadiusKm float64
}

// LocationConfig — бюджеты ожидания позиции от сенсора.
// FirstFixTimeoutMs — таймаут первой попытки (T0), MaxTimeoutMs — потолок
// для relaxed retry (Tmax).
type LocationConfig struct {
	FirstFixTimeoutMs int
	MaxTimeoutMs      int
}

// Load — загрузка из CONFIG_DIR (по умолчанию ./config) + ENV перекрывает
func Load() Config {
	configDir := getEnv("CONFIG_DIR", "./config")
	cfg := Config{}

	// db.yaml
	dbPath := filepath.Join(configDir, "db.yaml")
	if dbKV, err := parseYAML(dbPath); err == nil {
		cfg.Database.Host = getStrWithEnv("DB_HOST", dbKV, "host", "localhost")
		cfg.Database.Port = getIntWithEnv("DB_PORT", dbKV, "port", 5432)
		cfg.Database.User = getStrWithEnv("DB_USER", dbKV, "user", "outletradar_user")
		cfg.Database.Password = getStrWithEnv("DB_PASSWORD", dbKV, "password", "outletradar_pass")
		cfg.Database.Database = getStrWithEnv("DB_NAME", dbKV, "database", "outletradar_db")
		cfg.Database.SSLMode = getStrWithEnv("DB_SSLMODE", dbKV, "sslmode", "disable")
	} else {
		cfg.Database.Host = getEnv("DB_HOST", "localhost")
		cfg.Database.Port = getEnvInt("DB_PORT", 5432)
		cfg.Database.User = getEnv("DB_USER", "outletradar_user")
		cfg.Database.Password = getEnv("DB_PASSWORD", "outletradar_pass")
		cfg.Database.Database = getEnv("DB_NAME", "outletradar_db")
		cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	}

	// mq.yaml
	mqPath := filepath.Join(configDir, "mq.yaml")
	if mqKV, err := parseYAML(mqPath); err == nil {
		cfg.RabbitMQ.Host = getStrWithEnv("RABBITMQ_HOST", mqKV, "host", "localhost")
		cfg.RabbitMQ.Port = getIntWithEnv("RABBITMQ_PORT", mqKV, "port", 5672)
		cfg.RabbitMQ.User = getStrWithEnv("RABBITMQ_USER", mqKV, "user", "guest")
		cfg.RabbitMQ.Password = getStrWithEnv("RABBITMQ_PASSWORD", mqKV, "password", "guest")
		cfg.RabbitMQ.VHost = getStrWithEnv("RABBITMQ_VHOST", mqKV, "vhost", "/")
	} else {
		cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
		cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", 5672)
		cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
		cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")
		cfg.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", "/")
	}

	// ws.yaml
	wsPath := filepath.Join(configDir, "ws.yaml")
	if wsKV, err := parseYAML(wsPath); err == nil {
		cfg.WebSocket.Port = getIntWithEnv("WS_PORT", wsKV, "port", 8080)
	} else {
		cfg.WebSocket.Port = getEnvInt("WS_PORT", 8080)
	}

	// service.yaml
	svcPath := filepath.Join(configDir, "service.yaml")
	if svcKV, err := parseYAML(svcPath); err == nil {
		cfg.Services.OutletServicePort = getIntWithEnv("OUTLET_SERVICE_PORT", svcKV, "outlet_service", 3000)
	} else {
		cfg.Services.OutletServicePort = getEnvInt("OUTLET_SERVICE_PORT", 3000)
	}

	// jwt.yaml
	jwtPath := filepath.Join(configDir, "jwt.yaml")
	if jwtKV, err := parseYAML(jwtPath); err == nil {
		if sec, ok := jwtKV["jwt"]; ok {
			cfg.JWT.Secret = getStrWithEnvNested("JWT_SECRET", sec, "secret", "dev_secret")
			cfg.JWT.ExpiryMinutes = getIntWithEnvNested("JWT_EXPIRY_MINUTES", sec, "expiry_minutes", 60)
		} else {
			cfg.JWT.Secret = getStrWithEnv("JWT_SECRET", jwtKV, "secret", "dev_secret")
			cfg.JWT.ExpiryMinutes = getIntWithEnv("JWT_EXPIRY_MINUTES", jwtKV, "expiry_minutes", 60)
		}
	} else {
		cfg.JWT.Secret = getEnv("JWT_SECRET", "dev_secret")
		cfg.JWT.ExpiryMinutes = getEnvInt("JWT_EXPIRY_MINUTES", 60)
	}

	// chat.yaml
	chatPath := filepath.Join(configDir, "chat.yaml")
	if chatKV, err := parseYAML(chatPath); err == nil {
		cfg.Chat.Provider = getStrWithEnv("CHAT_PROVIDER", chatKV, "provider", "remote")
		cfg.Chat.BaseURL = getStrWithEnv("CHAT_BASE_URL", chatKV, "base_url", "http://localhost:9090")
		cfg.Chat.APIKey = getStrWithEnv("CHAT_API_KEY", chatKV, "api_key", "")
		cfg.Chat.Model = getStrWithEnv("CHAT_MODEL", chatKV, "model", "gemini-2.0-flash")
		cfg.Chat.CreateTimeoutSec = getIntWithEnv("CHAT_CREATE_TIMEOUT_SEC", chatKV, "create_timeout_sec", 30)
		cfg.Chat.SendTimeoutSec = getIntWithEnv("CHAT_SEND_TIMEOUT_SEC", chatKV, "send_timeout_sec", 15)
	} else {
		cfg.Chat.Provider = getEnv("CHAT_PROVIDER", "remote")
		cfg.Chat.BaseURL = getEnv("CHAT_BASE_URL", "http://localhost:9090")
		cfg.Chat.APIKey = getEnv("CHAT_API_KEY", "")
		cfg.Chat.Model = getEnv("CHAT_MODEL", "gemini-2.0-flash")
		cfg.Chat.CreateTimeoutSec = getEnvInt("CHAT_CREATE_TIMEOUT_SEC", 30)
		cfg.Chat.SendTimeoutSec = getEnvInt("CHAT_SEND_TIMEOUT_SEC", 15)
	}

	// geo.yaml
	geoPath := filepath.Join(configDir, "geo.yaml")
	if geoKV, err := parseYAML(geoPath); err == nil {
		cfg.Geo.IntersectionRadiusKm = getFloatWithEnv("GEO_INTERSECTION_RADIUS_KM", geoKV, "intersection_radius_km", 5.0)
		cfg.Location.FirstFixTimeoutMs = getIntWithEnv("LOCATION_FIRST_FIX_TIMEOUT_MS", geoKV, "first_fix_timeout_ms", 0)
		cfg.Location.MaxTimeoutMs = getIntWithEnv("LOCATION_MAX_TIMEOUT_MS", geoKV, "max_timeout_ms", 30000)
	} else {
		cfg.Geo.IntersectionRadiusKm = getEnvFloat("GEO_INTERSECTION_RADIUS_KM", 5.0)
		cfg.Location.FirstFixTimeoutMs = getEnvInt("LOCATION_FIRST_FIX_TIMEOUT_MS", 0)
		cfg.Location.MaxTimeoutMs = getEnvInt("LOCATION_MAX_TIMEOUT_MS", 30000)
	}

	return cfg
}

// parseYAML — парсит простые YAML файлы без глубокой вложенности
// Формат: key: value (плоский) либо section: \n  key: value
func parseYAML(path string) (map[string]map[string]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := map[string]map[string]string{}
	section := ""

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Начало секции: строка вида "section:" без пробелов
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			section = strings.TrimSuffix(line, ":")
			if result[section] == nil {
				result[section] = map[string]string{}
			}
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)

		if section != "" {
			if result[section] == nil {
				result[section] = map[string]string{}
			}
			result[section][key] = val
		} else {
			if result[""] == nil {
				result[""] = map[string]string{}
			}
			result[""][key] = val
		}
	}

	return result, sc.Err()
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getStrWithEnv(envKey string, yaml map[string]map[string]string, key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if val, ok := yaml[""][key]; ok && val != "" {
		return val
	}
	return def
}

func getIntWithEnv(envKey string, yaml map[string]map[string]string, key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if val, ok := yaml[""][key]; ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func getFloatWithEnv(envKey string, yaml map[string]map[string]string, key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if val, ok := yaml[""][key]; ok && val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return def
}

func getStrWithEnvNested(envKey string, section map[string]string, key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if val, ok := section[key]; ok && val != "" {
		return val
	}
	return def
}

func getIntWithEnvNested(envKey string, section map[string]string, key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if val, ok := section[key]; ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

// DSN возвращает строку подключения к БД
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// AMQPURL возвращает URL подключения к RabbitMQ
func (c MQConfig) AMQPURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}
