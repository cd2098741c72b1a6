/*
Copyright 2025 Heavyrent Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5401"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"RENTAHOLD_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"RENTAHOLD_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"RENTAHOLD_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"RENTAHOLD_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"RENTAHOLD_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"RENTAHOLD_REDIS_SKIP_TLS_VERIFY"`
}

// GatewayConfig points at the card processor. Amounts everywhere are integer
// minor-currency units; the gateway wrapper rejects anything else.
type GatewayConfig struct {
	SecretKey      string `json:"secret_key" envconfig:"RENTAHOLD_GATEWAY_SECRET_KEY"`
	BaseURL        string `json:"base_url" envconfig:"RENTAHOLD_GATEWAY_BASE_URL"`
	TimeoutSeconds int    `json:"timeout_seconds" envconfig:"RENTAHOLD_GATEWAY_TIMEOUT_SECONDS"`
}

// HoldConfig carries the business-rule constants of the hold lifecycle.
type HoldConfig struct {
	DefaultAmountCents   int64  `json:"default_amount_cents" envconfig:"RENTAHOLD_HOLD_DEFAULT_AMOUNT_CENTS"`
	Currency             string `json:"currency" envconfig:"RENTAHOLD_HOLD_CURRENCY"`
	LeadTimeHours        int    `json:"lead_time_hours" envconfig:"RENTAHOLD_HOLD_LEAD_TIME_HOURS"`
	GraceMinutes         int    `json:"grace_minutes" envconfig:"RENTAHOLD_HOLD_GRACE_MINUTES"`
	SchedulerBatchSize   int    `json:"scheduler_batch_size" envconfig:"RENTAHOLD_HOLD_SCHEDULER_BATCH_SIZE"`
	RetryCooldownSeconds int    `json:"retry_cooldown_seconds" envconfig:"RENTAHOLD_HOLD_RETRY_COOLDOWN_SECONDS"`
}

// QueueConfig tunes the background worker process.
type QueueConfig struct {
	MonitoringPort string `json:"monitoring_port" envconfig:"RENTAHOLD_QUEUE_MONITORING_PORT"`
}

type ReconciliationConfig struct {
	WindowDays int `json:"window_days" envconfig:"RENTAHOLD_RECONCILIATION_WINDOW_DAYS"`
	PageSize   int `json:"page_size" envconfig:"RENTAHOLD_RECONCILIATION_PAGE_SIZE"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"RENTAHOLD_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"RENTAHOLD_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"RENTAHOLD_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName    string               `json:"project_name" envconfig:"RENTAHOLD_PROJECT_NAME"`
	Server         ServerConfig         `json:"server"`
	DataSource     DataSourceConfig     `json:"data_source"`
	Redis          RedisConfig          `json:"redis"`
	Gateway        GatewayConfig        `json:"gateway"`
	Hold           HoldConfig           `json:"hold"`
	Queue          QueueConfig          `json:"queue"`
	Reconciliation ReconciliationConfig `json:"reconciliation"`
	Notification   Notification         `json:"notification"`
	RateLimit      RateLimitConfig      `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("rentahold", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called rentahold.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Rentahold Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Gateway.BaseURL = strings.TrimSpace(cnf.Gateway.BaseURL)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.applyTunableDefaults()

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// applyTunableDefaults fills in the gateway/hold/reconciliation knobs that
// have sane production defaults.
func (cnf *Configuration) applyTunableDefaults() {
	if cnf.Gateway.BaseURL == "" {
		cnf.Gateway.BaseURL = "https://api.stripe.com"
	}
	if cnf.Gateway.TimeoutSeconds <= 0 {
		cnf.Gateway.TimeoutSeconds = 30
	}

	if cnf.Hold.DefaultAmountCents <= 0 {
		cnf.Hold.DefaultAmountCents = 50000
	}
	if cnf.Hold.Currency == "" {
		cnf.Hold.Currency = "cad"
	}
	if cnf.Hold.LeadTimeHours <= 0 {
		cnf.Hold.LeadTimeHours = 48
	}
	if cnf.Hold.GraceMinutes <= 0 {
		cnf.Hold.GraceMinutes = 30
	}
	if cnf.Hold.SchedulerBatchSize <= 0 {
		cnf.Hold.SchedulerBatchSize = 100
	}
	if cnf.Hold.RetryCooldownSeconds <= 0 {
		cnf.Hold.RetryCooldownSeconds = 5
	}

	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5501"
	}

	if cnf.Reconciliation.WindowDays <= 0 {
		cnf.Reconciliation.WindowDays = 14
	}
	if cnf.Reconciliation.PageSize <= 0 {
		cnf.Reconciliation.PageSize = 100
	}
}

// MockConfig sets a mock configuration for testing purposes. Tunable defaults
// are applied so partial test configs still see production constants.
func MockConfig(mockConfig *Configuration) {
	mockConfig.applyTunableDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
