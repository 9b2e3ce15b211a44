// Command webserved is the process-level bootstrap around reactor.Server:
// flag parsing and signal handling live here, deliberately outside the
// core's scope; the process runs in the foreground. Flag surface mirrors WebServer's
// constructor parameter list (port, trigger mode, timeout, thread
// count, resource root, linger).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/enigmaiiiiiiii/webserver/internal/logging"
	"github.com/enigmaiiiiiiii/webserver/reactor"
)

func main() {
	app := cli.NewApp()
	app.Name = "webserved"
	app.Usage = "single-process multi-reactor HTTP/1.1 file server"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "port", Value: 1316, Usage: "listen port (1024-65535)"},
		cli.IntFlag{Name: "trigger-mode", Value: 3, Usage: "0=both level, 1=conn edge, 2=listen edge, 3=both edge"},
		cli.IntFlag{Name: "timeout-ms", Value: 60000, Usage: "idle connection timeout in milliseconds"},
		cli.IntFlag{Name: "thread-num", Value: 8, Usage: "worker pool size"},
		cli.StringFlag{Name: "src-dir", Value: "./resources", Usage: "static file document root"},
		cli.BoolFlag{Name: "opt-linger", Usage: "enable SO_LINGER{on=1,linger=1s} on the listen socket"},
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug|info|warn|error"},
		cli.IntFlag{Name: "log-queue-size", Value: 0, Usage: "0 = synchronous logging; >0 = async queue depth"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "webserved:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := logging.New(logging.Config{
		Level:     parseLevel(c.String("log-level")),
		QueueSize: c.Int("log-queue-size"),
	})
	defer logger.Close()

	cfg := reactor.Config{
		Port:        c.Int("port"),
		TriggerMode: reactor.TriggerMode(c.Int("trigger-mode")),
		TimeoutMS:   c.Int("timeout-ms"),
		OptLinger:   c.Bool("opt-linger"),
		ThreadNum:   c.Int("thread-num"),
		SrcDir:      c.String("src-dir"),
		Logger:      logger,
	}

	srv, err := reactor.NewServer(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("webserved: listening on :%d (trigger-mode=%d, threads=%d, src-dir=%s)",
		cfg.Port, cfg.TriggerMode, cfg.ThreadNum, cfg.SrcDir)
	return srv.Run(ctx)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.Debug
	case "warn":
		return logging.Warn
	case "error":
		return logging.Error
	default:
		return logging.Info
	}
}
