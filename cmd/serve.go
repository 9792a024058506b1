package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/api"
	"grimm.is/iwaf/internal/audit"
	"grimm.is/iwaf/internal/brand"
	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/logging"
	"grimm.is/iwaf/internal/metrics"
	"grimm.is/iwaf/internal/ratelimit"
	"grimm.is/iwaf/internal/sshui"
	"grimm.is/iwaf/internal/state"
	iwaftls "grimm.is/iwaf/internal/tls"
)

// shutdownTimeout bounds graceful shutdown of the listeners.
const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	configFile  string
	addr        string
	sshAddr     string
	sshHostKey  string
	sshPassword string
	noThrottle  bool
	watch       bool
	tls         bool
	tlsCert     string
	tlsKey      string
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console with its API, websocket feed and optional SSH TUI",
	Long: `Run the administration console in the foreground.

The configuration file is loaded at start and reloaded when it changes
on disk or on SIGHUP. A missing file starts from the defaults.

Example:
  iwaf serve
  iwaf serve --config ./iwaf.hcl --addr :8088
  iwaf serve --ssh-addr :2222 --ssh-password secret
  iwaf serve --tls   # self-signed, pin with: iwaf --fingerprint <sha256> ...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, serveOpts)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.configFile, "config", "c", brand.GetConfigPath(), "Configuration file (HCL or JSON)")
	f.StringVar(&serveOpts.addr, "addr", brand.DefaultAPIAddr, "API listen address")
	f.StringVar(&serveOpts.sshAddr, "ssh-addr", "", "Serve the TUI over SSH on this address")
	f.StringVar(&serveOpts.sshHostKey, "ssh-host-key", "", "SSH host key (PEM); generated per start when empty")
	f.StringVar(&serveOpts.sshPassword, "ssh-password", os.Getenv(brand.ConfigEnvPrefix+"_SSH_PASSWORD"), "Password required from SSH clients")
	f.BoolVar(&serveOpts.noThrottle, "no-throttle", false, "Disable per-client API throttling")
	f.BoolVar(&serveOpts.watch, "watch", true, "Reload the configuration file when it changes")
	f.BoolVar(&serveOpts.tls, "tls", false, "Serve the API over HTTPS")
	f.StringVar(&serveOpts.tlsCert, "tls-cert", "", "TLS certificate (PEM); self-signed when missing (default next to --config)")
	f.StringVar(&serveOpts.tlsKey, "tls-key", "", "TLS private key (PEM) (default next to --config)")
	rootCmd.AddCommand(serveCmd)
}

// loadServeConfig reads path, or returns the defaults when it does not exist.
func loadServeConfig(path string) (cfg *config.Config, exists bool, err error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return config.Default(), false, nil
	}
	cfg, err = config.LoadFile(path)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

// tlsPaths resolves the certificate and key, defaulting to the directory
// of the configuration file.
func (o serveOptions) tlsPaths() (certFile, keyFile string) {
	dir := filepath.Dir(o.configFile)
	certFile, keyFile = o.tlsCert, o.tlsKey
	if certFile == "" {
		certFile = filepath.Join(dir, brand.LowerName+"-api.crt")
	}
	if keyFile == "" {
		keyFile = filepath.Join(dir, brand.LowerName+"-api.key")
	}
	return certFile, keyFile
}

func runServe(ctx context.Context, opts serveOptions) error {
	logger := logging.Default()

	cfg, exists, err := loadServeConfig(opts.configFile)
	if err != nil {
		return err
	}
	if !exists {
		logger.Info("config file not found, using defaults", "path", opts.configFile)
	}

	revisions, err := state.Open(state.DefaultOptions(state.MemoryPath))
	if err != nil {
		return fmt.Errorf("failed to open revision store: %w", err)
	}
	defer revisions.Close()

	reg := metrics.Get()
	c, err := console.New(console.Options{
		Config:        cfg,
		Revisions:     revisions,
		Logger:        logger,
		Printer:       i18n.NewPrinter(cliLang),
		Metrics:       reg,
		DriveLogLevel: true,
	})
	if err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	reload := func(next *config.Config) {
		if _, err := c.ReloadConfig(next); err != nil {
			logger.Warn("reload failed", "error", err)
		}
	}
	if exists && opts.watch {
		w, err := config.NewWatcher(opts.configFile, logger.Logger, reload)
		if err != nil {
			logger.Warn("config watch disabled", "path", opts.configFile, "error", err)
		} else {
			w.Start()
			defer w.Close()
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	throttle := ratelimit.DefaultConfig()
	if opts.noThrottle {
		throttle = ratelimit.Config{}
	}
	trail, err := audit.NewStore(audit.DefaultRetain, nil)
	if err != nil {
		return err
	}
	defer trail.Close()

	srvCfg := api.DefaultServerConfig()
	var certs *iwaftls.CertificateManager
	certFile, keyFile := opts.tlsPaths()
	if opts.tls || opts.tlsCert != "" {
		cert, err := iwaftls.EnsureCertificate(certFile, keyFile, iwaftls.DefaultValidDays)
		if err != nil {
			return err
		}
		certs = iwaftls.NewCertificateManager()
		certs.SetCertificate(cert)
		srvCfg.TLS = certs.ServerConfig()
		logger.Info("api certificate", "cert", certFile, "fingerprint", iwaftls.Fingerprint(cert))
	}

	srv, err := api.NewServer(api.ServerOptions{
		Console:   c,
		Logger:    logger,
		Metrics:   reg,
		Config:    srvCfg,
		Audit:     trail,
		RateLimit: throttle,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(opts.addr); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	var ssh *sshui.Server
	if opts.sshAddr != "" {
		ssh, err = sshui.New(sshui.Options{
			Addr:        opts.sshAddr,
			HostKeyFile: opts.sshHostKey,
			Password:    opts.sshPassword,
			Console:     c,
			Logger:      logger.WithComponent("ssh"),
			Metrics:     reg,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := ssh.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("ssh server: %w", err)
			}
		}()
		if opts.sshPassword == "" {
			logger.Warn("ssh console has no password", "addr", opts.sshAddr)
		}
	}

	logger.Info("console running", "api", opts.addr, "ssh", opts.sshAddr, "version", brand.Version)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			break loop
		case err := <-errCh:
			runErr = err
			break loop
		case <-hup:
			if certs != nil {
				if cert, err := iwaftls.LoadCertificate(certFile, keyFile); err != nil {
					logger.Warn("certificate reload failed", "error", err)
				} else {
					certs.SetCertificate(cert)
				}
			}
			if !exists {
				logger.Warn("SIGHUP ignored, no config file", "path", opts.configFile)
				continue
			}
			next, err := config.LoadFile(opts.configFile)
			if err != nil {
				logger.Warn("reload failed", "error", err)
				continue
			}
			reload(next)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if ssh != nil {
		if err := ssh.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ssh shutdown", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", "error", err)
	}
	return runErr
}
