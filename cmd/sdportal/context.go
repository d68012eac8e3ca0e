package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sdportal/internal/api"
	"sdportal/internal/config"
	"sdportal/internal/imageenc"
	"sdportal/internal/ledger"
	"sdportal/internal/logging"
	"sdportal/internal/task"
	"sdportal/internal/transport"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// relayClient builds a transport client whose forbidden and server error
// hooks print a notice on the command's stderr.
func (c *commandContext) relayClient(cmd *cobra.Command) (*transport.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	stderr := cmd.ErrOrStderr()
	client, err := transport.New(cfg.Service.BaseURL,
		transport.WithTimeout(cfg.RequestTimeout()),
		transport.WithLogger(logger),
		transport.WithForbiddenHandler(func() {
			fmt.Fprintln(stderr, "relay refused the request (403); check the application wallet and client id")
		}),
		transport.WithServerErrorHandler(func() {
			fmt.Fprintln(stderr, "relay reported an internal error (500); try again later")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("relay client: %w", err)
	}
	return client, nil
}

func (c *commandContext) relayAPI(cmd *cobra.Command) (*api.API, error) {
	client, err := c.relayClient(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	encoder := imageenc.New(
		imageenc.WithHTTPClient(&http.Client{Timeout: client.Timeout()}),
		imageenc.WithLogger(logger),
	)
	return api.New(client, encoder), nil
}

func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) poseCatalog() (*task.PoseCatalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Assets.PoseCatalog == "" {
		return task.DefaultPoseCatalog(), nil
	}
	catalog, err := task.LoadPoseCatalog(cfg.Assets.PoseCatalog)
	if err != nil {
		return nil, fmt.Errorf("load pose catalog: %w", err)
	}
	return catalog, nil
}

// jsonOutput reports whether results should be written as JSON: either
// requested with --json or stdout is a file that is not a terminal.
func (c *commandContext) jsonOutput(cmd *cobra.Command) bool {
	if c.jsonFlag != nil && *c.jsonFlag {
		return true
	}
	file, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
