// Package cli provides the docqa command line interface.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time.
var version = "dev"

// Options carries the global flags to the bootstrap function.
type Options struct {
	// ConfigDir overrides the configuration directory.
	ConfigDir string

	// Verbose enables debug logging.
	Verbose bool
}

// Services holds the driving ports the commands run against.
type Services struct {
	Knowledge driving.KnowledgeService
	Settings  driving.SettingsService

	// Metrics serves Prometheus metrics. Optional.
	Metrics http.Handler

	// Close releases resources. Optional.
	Close func()
}

// BootstrapFunc builds the services from the global options.
type BootstrapFunc func(opts Options) (*Services, error)

var (
	knowledgeService driving.KnowledgeService
	settingsService  driving.SettingsService
	metricsHandler   http.Handler
	closeServices    func()

	bootstrap BootstrapFunc

	userFlag    string
	configDir   string
	verboseFlag bool
)

var errNoKnowledge = errors.New("knowledge service not configured")

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your own documents",
	Long: `docqa indexes the documents you give it and answers questions using
the most relevant passages as context.

Each user has a separate index. Questions only ever see the asking user's
documents. When nothing relevant is found the question is answered without
document context and the answer is marked as ungrounded.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
	PersistentPostRun: func(*cobra.Command, []string) {
		teardownServices()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "",
		"user whose documents are used (default $DOCQA_USER or the login name)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.docqa)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly, bypassing bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	knowledgeService = s.Knowledge
	settingsService = s.Settings
	metricsHandler = s.Metrics
	closeServices = s.Close
}

// Execute runs the root command and releases services afterwards,
// including when the command fails.
func Execute() error {
	defer teardownServices()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)
	if bootstrap == nil || cmd == versionCmd {
		return nil
	}

	services, err := bootstrap(Options{ConfigDir: configDir, Verbose: verboseFlag})
	if err != nil {
		return err
	}
	SetServices(services)
	return nil
}

func teardownServices() {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
}

// currentUser resolves the user from the flag, then $DOCQA_USER, then the
// login name.
func currentUser() string {
	if u := strings.TrimSpace(userFlag); u != "" {
		return u
	}
	if u := strings.TrimSpace(os.Getenv("DOCQA_USER")); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}
