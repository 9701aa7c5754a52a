package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	mongoURIVar    = "MONGODB_URI"
	mongoDBNameVar = "MONGODB_DATABASE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go User Auth")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetMongoURI returns the MongoDB connection string. There is no sensible
// default: an empty value is a fatal startup error.
func (EnvVars) GetMongoURI() string {
	return GetEnv(mongoURIVar, "")
}

func (EnvVars) GetMongoDatabase() string {
	return GetEnv(mongoDBNameVar, "userauth")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
