package config

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvInfo client bootstrap settings from .env
type EnvInfo struct {
	// binary names
	ChatClient string
	DevServer  string

	// session credential handed out by the platform's auth service
	SessionToken string

	// yaml path per binary
	ChatClientYAMLPath string
	DevServerYAMLPath  string

	// log path per binary
	ChatClientLogPath string
	DevServerLogPath  string
}

// EnvConfig shared bootstrap settings
var (
	EnvConfig = initEnv()
	envConfig EnvInfo
	once      sync.Once
	env       string
)

func initEnv() EnvInfo {
	once.Do(func() {

		path, err := GetPath(".env", 5)
		if err != nil {
			log.Printf("Warning: Could not get .env path: %v", err)
		}

		if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		env = os.Getenv("ENV")

		envConfig = EnvInfo{
			ChatClient: getenvDefault("CHAT_CLIENT", "chat_client"),
			DevServer:  getenvDefault("DEV_SERVER", "dev_server"),

			SessionToken: os.Getenv("SESSION_TOKEN"),

			ChatClientYAMLPath: getenvDefault("CHAT_CLIENT_YAML", "./configs"),
			DevServerYAMLPath:  getenvDefault("DEV_SERVER_YAML", "./configs"),

			ChatClientLogPath: getenvDefault("CHAT_CLIENT_LOG", "./logs"),
			DevServerLogPath:  getenvDefault("DEV_SERVER_LOG", "./logs"),
		}
	})

	return envConfig
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// IsProduction check run env
func IsProduction() bool {
	return env == "production"
}

// IsLocal check run env
func IsLocal() bool {
	return env == "local"
}

// LoadConfig loads <name>.yaml from configPath, expands ${ENV} placeholders
// with environment values and unmarshals into T.
func LoadConfig[T any](name string, configPath string) T {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error loading config file: %v", err)
	}

	rawConfig, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		log.Fatalf("Error reading raw config file: %v", err)
	}

	// replace ${} placeholders before the second parse
	expandedConfig := os.ExpandEnv(string(rawConfig))

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expandedConfig))); err != nil {
		log.Fatalf("Error reading expanded config: %v", err)
	}

	var cfg T
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Error unmarshaling config: %v", err)
	}
	return cfg
}

// GetPath use fileName loop maxCount find file path
func GetPath(fileName string, maxCount int) (string, error) {
	path := "./" + fileName

	for i := 0; i < maxCount; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = "../" + path
	}
	return "", errors.New(fileName + "can't find path ")
}
