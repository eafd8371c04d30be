package flight

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/viant/spatial-search/logging"
)

var (
	// ErrMissingCallSign reports a record without a call sign field.
	ErrMissingCallSign = errors.New("flight: missing call sign")
	// ErrMissingLatitude reports a record without a latitude field.
	ErrMissingLatitude = errors.New("flight: missing latitude")
	// ErrMissingLongitude reports a record without a longitude field.
	ErrMissingLongitude = errors.New("flight: missing longitude")
	// ErrInvalidNumber reports a coordinate that is not a number or out of range.
	ErrInvalidNumber = errors.New("flight: invalid coordinate")
)

// ParseLine parses a CALLSIGN,latitude,longitude record. The returned
// flight has a zero Index.
func ParseLine(line string) (Flight, error) {
	callSign, rest, ok := strings.Cut(line, ",")
	callSign = strings.TrimSpace(callSign)
	if !ok || callSign == "" {
		return Flight{}, fmt.Errorf("%w: %q", ErrMissingCallSign, line)
	}
	latText, lonText, ok := strings.Cut(rest, ",")
	if strings.TrimSpace(latText) == "" {
		return Flight{}, fmt.Errorf("%w: %q", ErrMissingLatitude, line)
	}
	if !ok || strings.TrimSpace(lonText) == "" {
		return Flight{}, fmt.Errorf("%w: %q", ErrMissingLongitude, line)
	}
	lat, err := parseCoordinate(latText, 90)
	if err != nil {
		return Flight{}, fmt.Errorf("%w: latitude in %q: %v", ErrInvalidNumber, line, err)
	}
	lon, err := parseCoordinate(lonText, 180)
	if err != nil {
		return Flight{}, fmt.Errorf("%w: longitude in %q: %v", ErrInvalidNumber, line, err)
	}
	return New(0, callSign, lat, lon), nil
}

func parseCoordinate(text string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, err
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%v outside [-%v, %v]", v, limit, limit)
	}
	return v, nil
}

// Read parses every record in r. Malformed records are logged and skipped;
// accepted flights are indexed consecutively from zero.
func Read(ctx context.Context, r io.Reader, logger *slog.Logger) ([]Flight, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	var flights []Flight
	scanner := bufio.NewScanner(r)
	lineNo := 0
	skipped := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		f, err := ParseLine(line)
		if err != nil {
			skipped++
			logger.Debug("skipping record", "line", lineNo, "error", err)
			continue
		}
		f.Index = uint64(len(flights))
		flights = append(flights, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("flight: read: %w", err)
	}
	logger.Info("flights loaded", "count", len(flights), "skipped", skipped)
	return flights, nil
}

// ReadFile opens path, decompressing by extension, and reads its records.
func ReadFile(ctx context.Context, path string, logger *slog.Logger) ([]Flight, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Read(ctx, rc, logger)
}
