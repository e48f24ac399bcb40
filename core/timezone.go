package core

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Cristobalca/shield-browser-app/log"

	"github.com/go-resty/resty/v2"
	"github.com/oschwald/geoip2-golang"
)

// Source tags reported by the discovery chain. TimezoneSourceDefault marks
// a fully degraded result, so callers can tell a detected timezone from the
// hardcoded fallback without the chain ever failing them.
const (
	TimezoneSourceGeoIP   = "geoip"
	TimezoneSourcePrimary = "primary"
	TimezoneSourceBackup  = "backup"
	TimezoneSourceSystem  = "system"
	TimezoneSourceDefault = "default"
)

// Some geolocation services answer errors with HTTP 200 and an error body.
var timezoneErrorMarkers = []string{"error", "<"}

type TimezoneResolver struct {
	cfg    *TimezoneConfig
	client *resty.Client
}

type timezoneTier struct {
	name string
	fn   func(ctx context.Context) (string, error)
}

func NewTimezoneResolver(cfg *TimezoneConfig) *TimezoneResolver {
	t := &TimezoneResolver{
		cfg: cfg,
	}
	t.client = resty.New().
		SetTimeout(time.Duration(cfg.StepTimeoutSecs) * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	return t
}

// Discover walks the fallback chain until a tier produces a timezone. Every
// tier is bounded by the per-step timeout, so the worst case latency is the
// sum of the network tiers' timeouts. It never fails: the last tier returns
// the configured default timezone with a degraded source tag.
func (t *TimezoneResolver) Discover(ctx context.Context) (string, string) {
	tiers := []timezoneTier{}
	if t.cfg.GeoIPDBPath != "" {
		tiers = append(tiers, timezoneTier{TimezoneSourceGeoIP, t.lookupGeoIPDB})
	}
	tiers = append(tiers,
		timezoneTier{TimezoneSourcePrimary, t.lookupPrimary},
		timezoneTier{TimezoneSourceBackup, t.lookupBackup},
		timezoneTier{TimezoneSourceSystem, t.lookupSystem},
	)

	for _, tier := range tiers {
		tz, err := tier.fn(ctx)
		if err != nil {
			log.Warning("timezone: '%s' lookup failed: %v", tier.name, err)
			continue
		}
		log.Info("timezone: detected %s (source: %s)", tz, tier.name)
		return tz, tier.name
	}

	log.Warning("timezone: all lookups failed, using default: %s", t.cfg.DefaultTimezone)
	return t.cfg.DefaultTimezone, TimezoneSourceDefault
}

// lookupGeoIPDB resolves the external IP and looks its timezone up in a
// local MaxMind database, avoiding any call to third-party geo services.
func (t *TimezoneResolver) lookupGeoIPDB(ctx context.Context) (string, error) {
	resp, err := t.client.R().SetContext(ctx).Get(t.cfg.ExternalIPURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("external ip lookup status %d", resp.StatusCode())
	}
	ip := net.ParseIP(strings.TrimSpace(resp.String()))
	if ip == nil {
		return "", fmt.Errorf("invalid external ip response: %s", resp.String())
	}

	db, err := geoip2.Open(t.cfg.GeoIPDBPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	record, err := db.City(ip)
	if err != nil {
		return "", err
	}
	if record.Location.TimeZone == "" {
		return "", fmt.Errorf("no timezone for ip %s in geoip db", ip)
	}
	return record.Location.TimeZone, nil
}

// lookupPrimary queries a service that answers with the bare timezone string.
func (t *TimezoneResolver) lookupPrimary(ctx context.Context) (string, error) {
	resp, err := t.client.R().SetContext(ctx).Get(t.cfg.PrimaryURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}
	tz := strings.TrimSpace(resp.String())
	if tz == "" {
		return "", fmt.Errorf("empty timezone response")
	}
	for _, marker := range timezoneErrorMarkers {
		if strings.Contains(tz, marker) {
			return "", fmt.Errorf("error-shaped timezone response: %s", tz)
		}
	}
	return tz, nil
}

// lookupBackup queries a service that answers with a JSON document.
func (t *TimezoneResolver) lookupBackup(ctx context.Context) (string, error) {
	var body struct {
		Timezone string `json:"timezone"`
	}
	resp, err := t.client.R().SetContext(ctx).SetResult(&body).Get(t.cfg.SecondaryURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}
	if body.Timezone == "" {
		return "", fmt.Errorf("no timezone field in response")
	}
	return body.Timezone, nil
}

// lookupSystem reads the host's configured timezone without touching the
// network: TZ env var, /etc/timezone, then the /etc/localtime symlink.
func (t *TimezoneResolver) lookupSystem(ctx context.Context) (string, error) {
	if tz := os.Getenv("TZ"); tz != "" {
		return tz, nil
	}
	if data, err := os.ReadFile("/etc/timezone"); err == nil {
		tz := strings.TrimSpace(string(data))
		if tz != "" {
			return tz, nil
		}
	}
	if link, err := filepath.EvalSymlinks("/etc/localtime"); err == nil {
		if i := strings.Index(link, "zoneinfo/"); i >= 0 {
			return link[i+len("zoneinfo/"):], nil
		}
	}
	return "", fmt.Errorf("no system timezone configured")
}
