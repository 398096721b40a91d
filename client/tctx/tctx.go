package tctx

import (
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

const (
	configDir  = ".runtime-tracker"
	configFile = "config.yaml"
	logFile    = "runtime-tracker.log"
)

var (
	trackerLogger *logrus.Logger
	getLoggerOnce sync.Once
)

func GetLogger() *logrus.Logger {
	getLoggerOnce.Do(func() {
		homedir, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Errorf("failed to get user's home directory: %v", err))
		}
		if err := MakeTrackerDir(); err != nil {
			panic(err)
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   path.Join(homedir, configDir, logFile),
			MaxSize:    1, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
		}

		logFormatter := new(logrus.TextFormatter)
		logFormatter.TimestampFormat = time.RFC3339
		logFormatter.FullTimestamp = true

		trackerLogger = logrus.New()
		trackerLogger.SetFormatter(logFormatter)
		trackerLogger.SetLevel(logrus.InfoLevel)
		trackerLogger.SetOutput(lumberjackLogger)
	})
	return trackerLogger
}

func MakeTrackerDir() error {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user's home directory: %v", err)
	}
	if err := os.MkdirAll(path.Join(homedir, configDir), 0o744); err != nil {
		return fmt.Errorf("failed to create ~/%s dir: %v", configDir, err)
	}
	return nil
}

type ClientConfig struct {
	// Base URL of the runtime-tracker server
	ServerUrl string `yaml:"server_url"`
	// The shared secret attached to every usage report
	Secret string `yaml:"secret"`
	// A stable ID identifying this device to the server
	DeviceId string `yaml:"device_id"`
	// Human readable name sent as the device ID when set
	DeviceName string `yaml:"device_name"`
}

// ReportedDeviceId is what the server keys this device's usage under.
func (c *ClientConfig) ReportedDeviceId() string {
	if c.DeviceName != "" {
		return c.DeviceName
	}
	return c.DeviceId
}

func configPath() (string, error) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to retrieve homedir: %v", err)
	}
	return path.Join(homedir, configDir, configFile), nil
}

func GetConfig() (ClientConfig, error) {
	p, err := configPath()
	if err != nil {
		return ClientConfig{}, err
	}
	dat, err := os.ReadFile(p)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("failed to read config file: %v", err)
	}
	var config ClientConfig
	if err := yaml.Unmarshal(dat, &config); err != nil {
		return ClientConfig{}, fmt.Errorf("failed to parse config file: %v", err)
	}
	return config, nil
}

func SetConfig(config ClientConfig) error {
	serializedConfig, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %v", err)
	}
	if err := MakeTrackerDir(); err != nil {
		return err
	}
	p, err := configPath()
	if err != nil {
		return err
	}
	stagedConfigPath := p + ".tmp"
	if err := os.WriteFile(stagedConfigPath, serializedConfig, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %v", err)
	}
	if err := os.Rename(stagedConfigPath, p); err != nil {
		return fmt.Errorf("failed to replace config file with the updated version: %v", err)
	}
	return nil
}

// InitConfig creates a fresh config with a minted device ID, preserving an
// existing config if one is already present.
func InitConfig(serverUrl, secret, deviceName string) (ClientConfig, error) {
	config, err := GetConfig()
	if err != nil {
		config = ClientConfig{DeviceId: uuid.Must(uuid.NewRandom()).String()}
	}
	if serverUrl != "" {
		config.ServerUrl = serverUrl
	}
	if secret != "" {
		config.Secret = secret
	}
	if deviceName != "" {
		config.DeviceName = deviceName
	}
	return config, SetConfig(config)
}
