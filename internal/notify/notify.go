// Package notify is the external notification collaborator described in spec.md §6.
// The deployment core only ever calls Notify with an event tag and a formatted
// message; it never blocks on or inspects the outcome (spec §6, §7 "Notification
// errors are swallowed").
package notify

import (
	"fmt"
	"net/smtp"
	"os"

	"gopkg.in/yaml.v2"

	"fleetdeploy/m/v2/internal/config"
	"fleetdeploy/m/v2/internal/logging"
)

// Events the core may dispatch. All three are masked uniformly by the enabled
// event whitelist (spec §9 Open Question: the source special-cased ip_success,
// this implementation does not).
const (
	EventStart     = "start"
	EventIPSuccess = "ip_success"
	EventComplete  = "complete"
)

// Override is an optional YAML sidecar document (config/notify.yaml) letting an
// operator point the notifier at a different mailbox without touching the JSON
// config record - grounded on the teacher's own yaml.v2 usage for its deployer
// agent configuration.
type Override struct {
	ToAddr string `yaml:"toAddr"`
}

// LoadOverride reads an optional notify.yaml, returning a zero Override if absent.
func LoadOverride(path string) (override Override, err error) {
	raw, readErr := os.ReadFile(path)
	if os.IsNotExist(readErr) {
		return
	}
	if readErr != nil {
		err = fmt.Errorf("failed to read notify override %s: %v", path, readErr)
		return
	}

	err = yaml.Unmarshal(raw, &override)
	if err != nil {
		err = fmt.Errorf("failed to decode notify override %s: %v", path, err)
	}
	return
}

// Notifier dispatches masked events to the configured email subrecord.
type Notifier struct {
	cfg      config.Config
	override Override
	sink     *logging.Sink
}

// New returns a Notifier bound to cfg and an optional override.
func New(cfg config.Config, override Override, sink *logging.Sink) *Notifier {
	return &Notifier{cfg: cfg, override: override, sink: sink}
}

// Notify delivers message for event if the event is masked in. Delivery
// itself runs on its own goroutine and its outcome only ever reaches a
// warning log - the deployment core never blocks on or inspects it (spec §6:
// "the core never blocks on its outcome").
func (n *Notifier) Notify(event string, message string) {
	if !n.cfg.NotifiesOn(event) {
		return
	}

	toAddr := n.cfg.Notification.Email.ToAddr
	if n.override.ToAddr != "" {
		toAddr = n.override.ToAddr
	}
	if toAddr == "" {
		return
	}

	go func() {
		if err := n.deliver(toAddr, event, message); err != nil {
			n.sink.Warn("notification delivery failed for event %s: %v", event, err)
		}
	}()
}

func (n *Notifier) deliver(toAddr, event, message string) error {
	email := n.cfg.Notification.Email
	addr := fmt.Sprintf("%s:%d", email.SMTPServer, email.SMTPPort)

	body := fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: deployment %s\r\n\r\n%s\r\n",
		toAddr, email.FromAddr, event, message)

	return smtp.SendMail(addr, nil, email.FromAddr, []string{toAddr}, []byte(body))
}
