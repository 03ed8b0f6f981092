// Package config loads and materializes the deployment engine's configuration record.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SSHSection holds the credentials used for every outbound SSH/SFTP connection.
type SSHSection struct {
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// PingSection controls the reachability prober (spec §4.A).
type PingSection struct {
	IntervalSeconds int `json:"intervalSeconds"`
	TimeoutSeconds  int `json:"timeoutSeconds"`
}

// RetrySection controls the orchestrator's round cadence and the SSH readiness ladder (spec §4.B, §4.G).
type RetrySection struct {
	RoundIntervalSeconds     int `json:"roundIntervalSeconds"`
	SSHAttemptsPerRound      int `json:"sshAttemptsPerRound"`
	SSHAttemptIntervalSeconds int `json:"sshAttemptIntervalSeconds"`
}

// EmailSection is the external notifier's SMTP sub-record. The notifier owns delivery;
// the core only ever reads NotificationSection.OnEvent (through NotifiesOn) to decide
// whether a call is pointless.
type EmailSection struct {
	SMTPServer string `json:"smtpServer"`
	SMTPPort   int    `json:"smtpPort"`
	FromAddr   string `json:"fromAddr"`
	ToAddr     string `json:"toAddr"`
}

// NotificationSection describes the masked event set dispatched to the external notifier.
// Per spec §9 Open Question, all three events {start, ip_success, complete} are masked
// uniformly - the source's special-casing of ip_success is not carried forward.
type NotificationSection struct {
	Enabled bool         `json:"enabled"`
	OnEvent []string     `json:"onEvent"`
	Email   EmailSection `json:"email"`
}

// Config is the Configuration Record described in spec.md §3.
type Config struct {
	SSH          SSHSection          `json:"ssh"`
	Ping         PingSection         `json:"ping"`
	Retry        RetrySection        `json:"retry"`
	Notification NotificationSection `json:"notification"`
}

// Default returns the record materialized when no config file is found on disk.
func Default() Config {
	return Config{
		SSH: SSHSection{
			Port: 22,
			User: "root",
		},
		Ping: PingSection{
			IntervalSeconds: 5,
			TimeoutSeconds:  2,
		},
		Retry: RetrySection{
			RoundIntervalSeconds:      30,
			SSHAttemptsPerRound:       5,
			SSHAttemptIntervalSeconds: 3,
		},
		Notification: NotificationSection{
			Enabled: false,
			OnEvent: []string{"start", "ip_success", "complete"},
		},
	}
}

// Load reads the configuration record from path, writing and returning the default
// record if the file does not exist yet (mirrors the teacher's installDefaultConfig).
func Load(path string) (cfg Config, err error) {
	raw, readErr := os.ReadFile(path)
	if os.IsNotExist(readErr) {
		cfg = Default()
		err = save(path, cfg)
		return
	}
	if readErr != nil {
		err = fmt.Errorf("failed to read config file: %v", readErr)
		return
	}

	err = json.Unmarshal(raw, &cfg)
	if err != nil {
		err = fmt.Errorf("failed to decode config file %s: %v", path, err)
		return
	}
	return
}

func save(path string, cfg Config) (err error) {
	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		err = fmt.Errorf("failed to create config directory: %v", err)
		return
	}

	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		err = fmt.Errorf("failed to encode default config: %v", err)
		return
	}

	err = os.WriteFile(path, encoded, 0o640)
	if err != nil {
		err = fmt.Errorf("failed to write default config file: %v", err)
		return
	}
	return
}

// NotifiesOn reports whether event is in the masked whitelist.
func (cfg Config) NotifiesOn(event string) bool {
	if !cfg.Notification.Enabled {
		return false
	}
	for _, allowed := range cfg.Notification.OnEvent {
		if allowed == event {
			return true
		}
	}
	return false
}
