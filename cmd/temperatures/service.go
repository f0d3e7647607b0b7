package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/iver-wharf/temperatures/pkg/config"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Controls the temperatures system service",
	Long: `Installs, uninstalls, starts, and stops temperatures as a system
service, such as a systemd unit. Most actions require root privileges.

The --config flag given to "service install" is passed on to the installed
service.`,
}

// program adapts runServe to the start and stop callbacks of the service
// manager.
type program struct {
	cfg config.Config
	// quit asks the service manager to stop the program. Called when
	// runServe returns by itself, such as when the port is taken.
	quit func()

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	err    error
}

func newProgram(cfg config.Config) *program {
	return &program{cfg: cfg, quit: signalSelfTerminate}
}

func (p *program) Start(s service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		err := runServe(ctx, p.cfg)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error().WithError(err).Message("Service stopped with error.")
		}
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		p.quit()
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Err returns the error that runServe stopped with, if it stopped by itself.
func (p *program) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func signalSelfTerminate() {
	proc, err := os.FindProcess(os.Getpid())
	if err == nil {
		err = proc.Signal(syscall.SIGTERM)
	}
	if err != nil {
		log.Error().WithError(err).Message("Failed to signal self to stop.")
		os.Exit(1)
	}
}

func newServiceConfig() (*service.Config, error) {
	cfg := &service.Config{
		Name:         "temperatures",
		DisplayName:  "temperatures",
		Description:  "Exports DS18B20 1-Wire temperature sensor readings as Prometheus metrics",
		Arguments:    []string{"service", "run"},
		Dependencies: []string{"After=network-online.target"},
	}
	if rootFlags.configFile != "" {
		abs, err := filepath.Abs(rootFlags.configFile)
		if err != nil {
			return nil, fmt.Errorf("resolve config file path: %w", err)
		}
		cfg.Arguments = append(cfg.Arguments, "--config", abs)
	}
	return cfg, nil
}

func newService(prg service.Interface) (service.Service, error) {
	cfg, err := newServiceConfig()
	if err != nil {
		return nil, err
	}
	return service.New(prg, cfg)
}

func newServiceControlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(newProgram(rootConfig))
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("%s system service: %w", action, err)
			}
			log.Info().WithString("action", action).Message("Done.")
			return nil
		},
	}
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the status of the system service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(newProgram(rootConfig))
		if err != nil {
			return err
		}
		status, err := svc.Status()
		if err != nil {
			return fmt.Errorf("get system service status: %w", err)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("running")
		case service.StatusStopped:
			fmt.Println("stopped")
		default:
			fmt.Println("unknown")
		}
		return nil
	},
}

var serviceRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Runs as the system service. Used by the service manager",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prg := newProgram(rootConfig)
		svc, err := newService(prg)
		if err != nil {
			return err
		}
		if err := svc.Run(); err != nil {
			return err
		}
		return prg.Err()
	},
}

func init() {
	serviceCmd.AddCommand(
		newServiceControlCmd("install", "Installs the system service"),
		newServiceControlCmd("uninstall", "Uninstalls the system service"),
		newServiceControlCmd("start", "Starts the system service"),
		newServiceControlCmd("stop", "Stops the system service"),
		newServiceControlCmd("restart", "Restarts the system service"),
		serviceStatusCmd,
		serviceRunCmd,
	)
	rootCmd.AddCommand(serviceCmd)
}
