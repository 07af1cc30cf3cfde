package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/twpayne/go-geofeatures"
	"github.com/twpayne/go-geofeatures/internal/config"
	"github.com/twpayne/go-geofeatures/internal/logging"
	"github.com/twpayne/go-geofeatures/internal/report"
)

// Exit codes. These are part of the command's interface.
const (
	exitSyntax          = 1
	exitLatitudeFormat  = 10
	exitLatitudeRange   = 12
	exitLongitudeFormat = 18
	exitLongitudeRange  = 20
	exitOutOfMap        = 32
)

type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func parseCoord(latArg, lonArg string) (geofeatures.LatLon, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return geofeatures.LatLon{}, &exitCodeError{code: exitLatitudeFormat, err: fmt.Errorf("latitude: %w", err)}
	}
	if !(-90 < lat && lat <= 90) {
		return geofeatures.LatLon{}, &exitCodeError{code: exitLatitudeRange, err: fmt.Errorf("latitude %g out of range (-90, 90]", lat)}
	}
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return geofeatures.LatLon{}, &exitCodeError{code: exitLongitudeFormat, err: fmt.Errorf("longitude: %w", err)}
	}
	if !(-180 <= lon && lon < 180) {
		return geofeatures.LatLon{}, &exitCodeError{code: exitLongitudeRange, err: fmt.Errorf("longitude %g out of range [-180, 180)", lon)}
	}
	return geofeatures.LatLon{Lat: lat, Lon: lon}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flagSet := flag.NewFlagSet("geofeatures", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	configPath := flagSet.String("config", os.Getenv("GEOFEATURES_CONFIG"), "path to configuration file")
	baseDirectory := flagSet.String("base-directory", "", "directory containing GTOPO30 and WORLDCLIM30")
	logLevel := flagSet.String("log-level", "", "log level")
	if err := flagSet.Parse(args); err != nil {
		return &exitCodeError{code: exitSyntax, err: err}
	}

	if flagSet.NArg() != 2 {
		return &exitCodeError{code: exitSyntax, err: errors.New("syntax: geofeatures [flags] [--] latitude longitude")}
	}
	coord, err := parseCoord(flagSet.Arg(0), flagSet.Arg(1))
	if err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *baseDirectory != "" {
		cfg.Data.BaseDirectory = *baseDirectory
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logger := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)

	resolver, err := cfg.NewResolver(logger)
	if err != nil {
		return err
	}

	switch result, err := resolver.ResolveFeatures(ctx, coord); {
	case errors.Is(err, geofeatures.ErrCoordinateOutOfDomain):
		return &exitCodeError{code: exitOutOfMap, err: err}
	case err != nil:
		return err
	default:
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report.New(result))
	}
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitErr := (*exitCodeError)(nil); errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}
