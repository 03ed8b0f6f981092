// deployer drives a parallel fleet deployment: it reads the host list and
// file manifest, clears stale known_hosts entries, then spawns one worker
// per host and rounds through retries until every host succeeds or the
// operator interrupts (spec.md §2 data flow, §6 CLI surface).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"fleetdeploy/m/v2/internal/apperr"
	"fleetdeploy/m/v2/internal/config"
	"fleetdeploy/m/v2/internal/fleet"
	"fleetdeploy/m/v2/internal/hostlist"
	"fleetdeploy/m/v2/internal/knownhosts"
	"fleetdeploy/m/v2/internal/ledger"
	"fleetdeploy/m/v2/internal/logging"
	"fleetdeploy/m/v2/internal/manifest"
	"fleetdeploy/m/v2/internal/notify"
)

const progVersion = "v1.0.0"

const usage = `
Examples:
    deployer --config-dir </path/to/config> --verbosity 3

Options:
    -d, --config-dir <dir>     Directory holding ip.txt, file.txt, and config.json [default: config]
    -f, --file-dir <dir>       Directory holding the manifest's local files [default: file]
    -v, --verbosity <0-4>      Log verbosity level [default: 2]
    -p, --ask-pass              Prompt for the SSH password instead of reading it from config.json
    -V, --version              Show version and exit
`

func main() {
	var configDir string
	var fileDir string
	var verbosity int
	var versionFlagExists bool
	var askPass bool

	flag.StringVar(&configDir, "d", "config", "")
	flag.StringVar(&configDir, "config-dir", "config", "")
	flag.StringVar(&fileDir, "f", "file", "")
	flag.StringVar(&fileDir, "file-dir", "file", "")
	flag.IntVar(&verbosity, "v", logging.VerbosityProgress, "")
	flag.IntVar(&verbosity, "verbosity", logging.VerbosityProgress, "")
	flag.BoolVar(&askPass, "p", false, "")
	flag.BoolVar(&askPass, "ask-pass", false, "")
	flag.BoolVar(&versionFlagExists, "V", false, "")
	flag.BoolVar(&versionFlagExists, "version", false, "")

	flag.Usage = func() { fmt.Printf("Usage: %s [OPTIONS]...\n%s", os.Args[0], usage) }
	flag.Parse()

	if versionFlagExists {
		fmt.Printf("deployer %s\n", progVersion)
		os.Exit(0)
	}

	sink, err := logging.New(verbosity, logPath())
	if err != nil {
		fmt.Printf("failed to open log sink: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	ipListPath := filepath.Join(configDir, "ip.txt")
	manifestPath := filepath.Join(configDir, "file.txt")
	configPath := filepath.Join(configDir, "config.json")
	knownHostsPath := filepath.Join(configDir, "known_hosts")
	notifyOverridePath := filepath.Join(configDir, "notify.yaml")

	// Mandatory inputs: file/ dir, ip.txt, file.txt must exist and not be empty (spec §6).
	requireNonEmptyDir(sink, fileDir)

	hosts, err := hostlist.Load(ipListPath)
	if err != nil {
		sink.Fatal("failed to load host list", err)
	}
	if len(hosts) == 0 {
		sink.Fatal("host list is empty", fmt.Errorf("%s contains no hosts", ipListPath))
	}

	entries, err := manifest.Load(manifestPath)
	if err != nil {
		sink.Fatal("failed to load manifest", err)
	}
	if len(entries) == 0 {
		sink.Fatal("manifest is empty", fmt.Errorf("%s contains no entries", manifestPath))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		sink.Fatal("failed to load configuration", err)
	}

	if askPass {
		password, promptErr := promptPassword()
		if promptErr != nil {
			sink.Fatal("failed to read SSH password", promptErr)
		}
		cfg.SSH.Password = password
	}

	hostKeyCallback, err := knownhosts.Callback(knownHostsPath)
	if err != nil {
		sink.Fatal("failed to build host key callback", err)
	}

	fleet.SanitizeKnownHosts(knownHostsPath, hosts, cfg.SSH.Port, sink)

	mode := promptMode(sink)

	completionLedger, err := ledger.Open("complete.txt")
	if err != nil {
		sink.Fatal("failed to open completion ledger", err)
	}

	override, err := notify.LoadOverride(notifyOverridePath)
	if err != nil {
		sink.Warn("failed to load notification override: %v", err)
	}
	notifier := notify.New(cfg, override, sink)

	failures := apperr.NewTracker()

	sink.Printf(logging.VerbosityStandard, logging.IconRunning, "starting deployment for %d hosts, %d manifest entries, mode=%s\n", len(hosts), len(entries), modeName(mode))

	incomplete := fleet.Run(fleet.RunConfig{
		Hosts:           hosts,
		Entries:         entries,
		LocalFileDir:    fileDir,
		Mode:            mode,
		Cfg:             cfg,
		HostKeyCallback: hostKeyCallback,
		Sink:            sink,
		Ledger:          completionLedger,
		Notifier:        notifier,
		Failures:        failures,
	})

	if len(incomplete) > 0 {
		sink.Printf(logging.VerbosityStandard, logging.IconWarning, "interrupted with %d host(s) still incomplete: %s\n", len(incomplete), strings.Join(incomplete, ", "))
		writeFailTracker(sink, failures)
	} else {
		sink.Printf(logging.VerbosityStandard, logging.IconSuccess, "deployment complete for all hosts\n")
	}

	os.Exit(0)
}

// requireNonEmptyDir enforces spec §6's startup validation: the file/
// directory must exist and contain at least one entry.
func requireNonEmptyDir(sink *logging.Sink, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		sink.Fatal(fmt.Sprintf("required directory %s is missing", dir), err)
	}
	if len(entries) == 0 {
		sink.Fatal(fmt.Sprintf("required directory %s is empty", dir), fmt.Errorf("no files to deploy"))
	}
}

// promptMode repeats the single mandatory interactive prompt from spec §6
// until the operator answers "move" or "nomove", mirroring the teacher's
// own promptUser loop in main_helpers.go.
func promptMode(sink *logging.Sink) fleet.Mode {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter mode (move/nomove) : ")
		line, err := reader.ReadString('\n')
		if err != nil {
			sink.Fatal("failed to read mode prompt", err)
		}
		line = strings.ToLower(strings.TrimSpace(line))

		switch line {
		case "move":
			return fleet.ModeMove
		case "nomove":
			return fleet.ModeNoMove
		}
	}
}

// promptPassword reads the SSH password without echoing it back, the same
// terminal-gated approach as the teacher's promptUserForSecret.
func promptPassword() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("not in a terminal, --ask-pass cannot prompt")
	}

	fmt.Print("Enter SSH password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}

// writeFailTracker persists the interrupted-host tracker to disk, one JSON
// object per line, mirroring the teacher's own FailTracker persistence.
func writeFailTracker(sink *logging.Sink, failures *apperr.Tracker) {
	lines := failures.Lines()
	if len(lines) == 0 {
		return
	}
	err := os.WriteFile("failtracker.json", []byte(strings.Join(lines, "\n")+"\n"), 0o644)
	if err != nil {
		sink.Warn("failed to write failtracker.json: %v", err)
	}
}

func modeName(mode fleet.Mode) string {
	if mode == fleet.ModeMove {
		return "move"
	}
	return "nomove"
}

func logPath() string {
	os.MkdirAll("log", 0o755)
	timestamp := stampFromEnv()
	return filepath.Join("log", fmt.Sprintf("deploy_%s.log", timestamp))
}

// stampFromEnv names the per-run log file with the current local time,
// matching spec §6's deploy_YYYYMMDD_HHMMSS.log naming.
func stampFromEnv() string {
	return time.Now().Format("20060102_150405")
}
