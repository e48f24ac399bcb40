package core

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/Cristobalca/shield-browser-app/log"

	"github.com/google/uuid"
)

const (
	GenerationModeGeo           = "geo"
	GenerationModeLocal         = "local"
	GenerationModeLocalFallback = "local-fallback"
)

// OriginTagLocal marks identities not anchored to a catalog city.
const OriginTagLocal = "local"

// Generic reference coordinates handed out in local mode so the caller's
// real location never leaks into the fingerprint.
const (
	localRefLatitude  = 40.7128
	localRefLongitude = -74.0060
)

type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Identity is the complete fingerprint record handed to a browsing session.
// It is created fresh per session, never mutated and never persisted.
type Identity struct {
	Id                  string            `json:"id"`
	Geolocation         Geolocation       `json:"geolocation"`
	Timezone            string            `json:"timezone"`
	Locale              *LocaleProfile    `json:"locale"`
	NavigatorLanguage   string            `json:"navigator_language"`
	UserAgent           string            `json:"user_agent"`
	Vendor              string            `json:"vendor"`
	Platform            string            `json:"platform"`
	Resolution          Resolution        `json:"resolution"`
	Viewport            Viewport          `json:"viewport"`
	DeviceScaleFactor   float64           `json:"device_scale_factor"`
	HardwareConcurrency int               `json:"hardware_concurrency"`
	DeviceMemory        int               `json:"device_memory"`
	MaxTouchPoints      int               `json:"max_touch_points"`
	Permissions         []string          `json:"permissions"`
	ExtraHTTPHeaders    map[string]string `json:"extra_http_headers"`
	WebGLVendor         string            `json:"webgl_vendor"`
	WebGLRenderer       string            `json:"webgl_renderer"`
	CanvasHash          string            `json:"canvas_hash"`
	CanvasNoise         float64           `json:"canvas_noise"`
	OriginTag           string            `json:"origin_tag"`
	GenerationMode      string            `json:"generation_mode"`
	OSProfileID         string            `json:"os_profile"`
	AudioMode           string            `json:"audio_mode"`
	FontsMode           string            `json:"fonts_mode"`
	CreatedAt           time.Time         `json:"created_at"`
}

type timezoneDiscoverer interface {
	Discover(ctx context.Context) (string, string)
}

type IdentitySynthesizer struct {
	cfg *Config
	tz  timezoneDiscoverer
}

func NewIdentitySynthesizer(cfg *Config) *IdentitySynthesizer {
	return &IdentitySynthesizer{
		cfg: cfg,
		tz:  NewTimezoneResolver(cfg.GetTimezone()),
	}
}

// SynthesizeGeo builds an identity anchored to a catalog city. An unknown
// anchor falls back to the configured default instead of failing the caller.
// Canvas fields are a pure function of the anchor, so repeated syntheses for
// the same city always carry the same "hardware" signature.
func (s *IdentitySynthesizer) SynthesizeGeo(anchorName string) *Identity {
	anchor, ok := GetAnchor(anchorName)
	if !ok {
		fallback := s.cfg.GetFingerprint().DefaultAnchor
		log.Warning("identity: anchor '%s' not found in catalog, using %s", anchorName, fallback)
		if anchor, ok = GetAnchor(fallback); !ok {
			anchor, _ = GetAnchor(DefaultAnchorName)
		}
	}

	profile := s.pickOSProfile()
	seed := geoSeed(anchor)
	locale := ResolveLocale(LocaleQuery{
		Timezone:           anchor.Timezone,
		PreferSystemLocale: s.cfg.GetFingerprint().PreferSystemLocale,
		ForcedLocale:       s.cfg.GetFingerprint().ForcedLocale,
	})
	res := anchor.Resolutions[rand.Intn(len(anchor.Resolutions))]

	ident := s.compose(profile, locale, res, anchor.Timezone, seed)
	ident.Geolocation = Geolocation{
		Latitude:  jitter(anchor.Latitude, 0.03),
		Longitude: jitter(anchor.Longitude, 0.03),
	}
	ident.OriginTag = anchor.Name
	ident.GenerationMode = GenerationModeGeo

	log.Debug("identity: synthesized geo identity %s for %s (%s, %s)", ident.Id, anchor.Name, profile.Id, ident.NavigatorLanguage)
	return ident
}

// SynthesizeLocal builds an identity around the caller's real timezone,
// discovered through the network fallback chain. The reported coordinates
// stay generic on purpose, and the seed includes wall-clock time so canvas
// fields differ between sessions.
func (s *IdentitySynthesizer) SynthesizeLocal(ctx context.Context) *Identity {
	tz, source := s.tz.Discover(ctx)
	if source == TimezoneSourceDefault {
		return s.localFallback(tz)
	}

	profile := s.pickOSProfile()
	seed := fmt.Sprintf("local-%s-%d", tz, time.Now().UnixNano())
	locale := ResolveLocale(LocaleQuery{
		Timezone:           tz,
		PreferSystemLocale: true,
		ForcedLocale:       s.cfg.GetFingerprint().ForcedLocale,
	})
	res := genericResolutions[rand.Intn(len(genericResolutions))]

	ident := s.compose(profile, locale, res, tz, seed)
	ident.Geolocation = Geolocation{
		Latitude:  jitter(localRefLatitude, 0.05),
		Longitude: jitter(localRefLongitude, 0.05),
	}
	ident.OriginTag = OriginTagLocal
	ident.GenerationMode = GenerationModeLocal

	log.Debug("identity: synthesized local identity %s (timezone %s via %s)", ident.Id, tz, source)
	return ident
}

// localFallback produces a degraded but usable identity when the whole
// timezone discovery chain came up empty. The generation mode marker keeps
// the failure observable without aborting the session.
func (s *IdentitySynthesizer) localFallback(tz string) *Identity {
	profile, _ := GetOSProfile("windows")
	seed := fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	locale := ResolveLocale(LocaleQuery{Timezone: tz})

	ident := s.compose(profile, locale, Resolution{1920, 1080}, tz, seed)
	ident.Viewport = Viewport{Width: 1920 - 20, Height: 1080 - 100}
	ident.Geolocation = Geolocation{Latitude: localRefLatitude, Longitude: localRefLongitude}
	ident.OriginTag = OriginTagLocal
	ident.GenerationMode = GenerationModeLocalFallback

	log.Warning("identity: timezone discovery exhausted, synthesized fallback identity %s", ident.Id)
	return ident
}

func (s *IdentitySynthesizer) compose(profile *OSProfile, locale *LocaleProfile, res Resolution, timezone string, seed string) *Identity {
	return &Identity{
		Id:                  uuid.New().String(),
		Timezone:            timezone,
		Locale:              locale,
		NavigatorLanguage:   locale.Locales[0],
		UserAgent:           profile.UserAgents[rand.Intn(len(profile.UserAgents))],
		Vendor:              profile.Vendor,
		Platform:            profile.Platform,
		Resolution:          res,
		Viewport: Viewport{
			Width:  res.Width - randBetween(15, 25),
			Height: res.Height - randBetween(90, 120),
		},
		DeviceScaleFactor:   profile.DeviceScaleFactor,
		HardwareConcurrency: profile.HardwareConcurrency[rand.Intn(len(profile.HardwareConcurrency))],
		DeviceMemory:        profile.DeviceMemory[rand.Intn(len(profile.DeviceMemory))],
		MaxTouchPoints:      profile.MaxTouchPoints,
		Permissions:         []string{"geolocation"},
		ExtraHTTPHeaders:    map[string]string{"Accept-Language": locale.AcceptLanguage},
		WebGLVendor:         profile.WebGLVendor,
		WebGLRenderer:       profile.WebGLRenderers[rand.Intn(len(profile.WebGLRenderers))],
		CanvasHash:          CanvasHashOf(seed),
		CanvasNoise:         NoiseOf(seed),
		OSProfileID:         profile.Id,
		AudioMode:           profile.AudioMode,
		FontsMode:           profile.FontsMode,
		CreatedAt:           time.Now().UTC(),
	}
}

func (s *IdentitySynthesizer) pickOSProfile() *OSProfile {
	if id := s.cfg.GetFingerprint().OSProfile; id != "" {
		if p, ok := GetOSProfile(id); ok {
			return p
		}
	}
	ids := OSProfileIds()
	p, _ := GetOSProfile(ids[rand.Intn(len(ids))])
	return p
}

// geoSeed composes the deterministic canvas seed from the anchor's
// pre-jitter coordinates.
func geoSeed(anchor *GeoAnchor) string {
	return anchor.Name + "-" + formatCoord(anchor.Latitude) + "-" + formatCoord(anchor.Longitude)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func randBetween(min int, max int) int {
	return min + rand.Intn(max-min+1)
}

func jitter(value float64, radius float64) float64 {
	return value + (rand.Float64()*2-1)*radius
}
