package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dianpeng/qbench/bench"
	"github.com/dianpeng/qbench/config"
	"github.com/dianpeng/qbench/exec"
	"github.com/dianpeng/qbench/report"
)

type options struct {
	configFile string
	reportDir  string
	timeout    time.Duration
	logLevel   string
	noColor    bool
}

func newApp(opt *options) *kingpin.Application {
	app := kingpin.New("qbench", "Run the same queries over parquet tables on a row, a SQL and a columnar engine, and compare.")
	app.HelpFlag.Short('h')
	app.Flag("config.file", "Benchmark configuration file.").Default(config.DefaultFile).StringVar(&opt.configFile)
	app.Flag("report.dir", "Also write charts and a PDF report into this directory.").StringVar(&opt.reportDir)
	app.Flag("query.timeout", "Per query timeout, 0 means none.").Default("0s").DurationVar(&opt.timeout)
	app.Flag("log.level", "Only log messages with the given severity or above.").Default("info").EnumVar(&opt.logLevel, "debug", "info", "warn", "error")
	app.Flag("no-color", "Disable colored console output.").BoolVar(&opt.noColor)
	return app
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))

	var allow level.Option
	switch lvl {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}
	logger = level.NewFilter(logger, allow)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// run is the whole program; it returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opt options
	app := newApp(&opt)
	app.UsageWriter(stdout)
	app.ErrorWriter(stderr)
	app.Terminate(func(int) {})
	if _, err := app.Parse(args); err != nil {
		app.Errorf("%s", err)
		return 1
	}

	logger := newLogger(stderr, opt.logLevel)

	c, err := config.Load(opt.configFile)
	if err != nil {
		level.Error(logger).Log("msg", "cannot load configuration", "err", err)
		return 1
	}

	backends, err := exec.All(logger)
	if err != nil {
		level.Error(logger).Log("msg", "cannot start engines", "err", err)
		return 1
	}
	defer func() {
		for _, b := range backends {
			if err := b.Close(); err != nil {
				level.Warn(logger).Log("msg", "cannot close engine", "engine", b.Engine(), "err", err)
			}
		}
	}()

	rep := bench.NewRunner(logger, backends, opt.timeout).Run(ctx, c)
	report.NewConsole(stdout, opt.noColor).Print(rep)

	if opt.reportDir != "" {
		files, err := report.Write(opt.reportDir, rep)
		if err != nil {
			level.Error(logger).Log("msg", "cannot write report", "dir", opt.reportDir, "err", err)
		} else {
			level.Info(logger).Log("msg", "report written", "pdf", files.PDF)
		}
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
