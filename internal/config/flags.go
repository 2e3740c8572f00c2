package config

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"geotrace/internal/models"
)

// ParseFlags parses the flags of a subcommand over the defaults, or over
// the file named by --config. Only flags given explicitly override the file.
func ParseFlags(command string, args []string, output io.Writer) (Config, error) {
	fs := pflag.NewFlagSet("geotrace "+command, pflag.ContinueOnError)
	fs.SetOutput(output)

	d := Default()
	var (
		configPath  = fs.StringP("config", "c", "", "YAML configuration file")
		server      = fs.StringP("server", "s", d.Server, "GeoTraceroute service URL")
		maxHops     = fs.IntP("max-hops", "m", d.MaxHops, "Maximum number of hops (1-64)")
		reputation  = fs.Bool("reputation", false, "Request reputation scores (needs an API key)")
		apiKey      = fs.String("api-key", "", "IPInfo API key forwarded to the service")
		lat         = fs.Float64("client-lat", 0, "Client latitude")
		lon         = fs.Float64("client-lon", 0, "Client longitude")
		city        = fs.String("client-city", "", "Client city")
		country     = fs.String("client-country", "", "Client country")
		checkHealth = fs.Bool("check-health", false, "Check service health before tracing")
		dbPath      = fs.String("db", d.DatabasePath, "Database path")
		record      = fs.Bool("record", d.Record, "Record finished runs in the database")
		geojson     = fs.String("geojson", "", "Write the route as GeoJSON to this file")
		retention   = fs.Int("retention-days", d.RetentionDays, "Days of run history to keep")
		port        = fs.IntP("port", "p", d.Port, "Web server port")
		targets     = fs.StringSlice("targets", nil, "Targets traced periodically by serve")
		interval    = fs.Duration("interval", d.Interval, "Interval between watched traces")
		traceID     = fs.Int64("trace", 0, "Recorded run ID")
		outputDir   = fs.StringP("out", "o", d.OutputDir, "Report output directory")
		limit       = fs.IntP("limit", "n", d.Limit, "Number of runs to list")
		tick        = fs.Duration("progress-interval", d.Progress.Interval, "Progress tick interval")
		verbose     = fs.BoolP("verbose", "v", false, "Verbose logging")
		noColor     = fs.Bool("no-color", false, "Disable colored output")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := d
	if *configPath != "" {
		loaded, err := Load(*configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "server":
			cfg.Server = *server
		case "max-hops":
			cfg.MaxHops = *maxHops
		case "reputation":
			cfg.IncludeReputation = *reputation
		case "api-key":
			cfg.APIKey = *apiKey
		case "client-lat":
			cfg.clientLocation().Latitude = *lat
		case "client-lon":
			cfg.clientLocation().Longitude = *lon
		case "client-city":
			cfg.clientLocation().City = *city
		case "client-country":
			cfg.clientLocation().Country = *country
		case "check-health":
			cfg.CheckHealth = *checkHealth
		case "db":
			cfg.DatabasePath = *dbPath
		case "record":
			cfg.Record = *record
		case "geojson":
			cfg.GeoJSONPath = *geojson
		case "retention-days":
			cfg.RetentionDays = *retention
		case "port":
			cfg.Port = *port
		case "targets":
			cfg.Targets = *targets
		case "interval":
			cfg.Interval = *interval
		case "trace":
			cfg.TraceID = *traceID
		case "out":
			cfg.OutputDir = *outputDir
		case "limit":
			cfg.Limit = *limit
		case "progress-interval":
			cfg.Progress.Interval = *tick
		case "verbose":
			cfg.Verbose = *verbose
		case "no-color":
			cfg.NoColor = *noColor
		}
	})

	if command == "trace" {
		if fs.NArg() != 1 {
			return Config{}, fmt.Errorf("usage: geotrace trace [flags] <target>")
		}
		cfg.Target = fs.Arg(0)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// clientLocation returns the location to overlay flags on, creating it if needed
func (c *Config) clientLocation() *models.ClientLocation {
	if c.ClientLocation == nil {
		c.ClientLocation = &models.ClientLocation{}
	}
	return c.ClientLocation
}
