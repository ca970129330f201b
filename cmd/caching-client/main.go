package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	cachingclient "github.com/laser/caching-client"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// options are read from the environment (and a .env file) first,
// then overridden by flags.
type options struct {
	DB       string        `env:"CACHING_CLIENT_DB" envDefault:"simple.db"`
	URL      string        `env:"CACHING_CLIENT_URL" envDefault:"https://www.google.com"`
	Duration time.Duration `env:"CACHING_CLIENT_DURATION" envDefault:"1s"`
	Sleep    time.Duration `env:"CACHING_CLIENT_SLEEP" envDefault:"1s"`
	Count    int           `env:"CACHING_CLIENT_COUNT" envDefault:"3"`
	LogFile  string        `env:"CACHING_CLIENT_LOG_FILE"`
	Trace    bool          `env:"CACHING_CLIENT_TRACE"`
}

var (
	// this is set by goreleaser
	version string
)

func init() {
	if version == "" {
		version = "DEV"
	}
}

func main() {
	opts, err := loadOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	setupLogging(opts)

	if err := run(opts, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Example failed")
	}
}

// loadOptions reads .env, the environment and then the command line flags.
func loadOptions(args []string) (options, error) {
	var opts options
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return opts, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&opts); err != nil {
		return opts, fmt.Errorf("parse env: %w", err)
	}

	flags := flag.NewFlagSet("caching-client", flag.ContinueOnError)
	flags.StringVar(&opts.DB, "db", opts.DB, "Cache DB file name")
	flags.StringVar(&opts.URL, "url", opts.URL, "URL to request")
	flags.DurationVar(&opts.Duration, "duration", opts.Duration, "How long responses stay cached (0 caches forever)")
	flags.DurationVar(&opts.Sleep, "sleep", opts.Sleep, "Pause before the last request")
	flags.IntVar(&opts.Count, "count", opts.Count, "Number of requests to send")
	flags.StringVar(&opts.LogFile, "log-file", opts.LogFile, "Log file to use (in addition to stdout)")
	flags.BoolVar(&opts.Trace, "vv", opts.Trace, "Verbosity: trace logging")
	if err := flags.Parse(args); err != nil {
		return opts, err
	}

	if opts.Count < 1 {
		return opts, fmt.Errorf("count must be at least 1, got %d", opts.Count)
	}
	return opts, nil
}

// setupLogging logs to stdout, and also to a rotated log file if specified.
func setupLogging(opts options) {
	logLevel := zerolog.DebugLevel
	if opts.Trace {
		logLevel = zerolog.TraceLevel
	}

	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if opts.LogFile != "" {
		logOutputs = append(logOutputs, &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()
}

// run sends the same request opts.Count times, pausing before the last one
// so the cached entry can expire, and prints how each request was handled.
func run(opts options, out io.Writer) error {
	client, err := cachingclient.New(opts.DB, opts.Duration, &log.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	for i := 0; i < opts.Count; i++ {
		if i > 0 && i == opts.Count-1 && opts.Sleep > 0 {
			time.Sleep(opts.Sleep)
		}
		req, err := http.NewRequest("GET", opts.URL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		body, status, err := client.SendStatus(req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d: %s (%d bytes)\n", i+1, status, body.Len())
	}
	return nil
}
