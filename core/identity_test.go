package core

import (
	"context"
	"math"
	"testing"
)

type stubDiscoverer struct {
	tz     string
	source string
}

func (s *stubDiscoverer) Discover(ctx context.Context) (string, string) {
	return s.tz, s.source
}

func newTestSynthesizer(t *testing.T) *IdentitySynthesizer {
	t.Helper()
	cfg, err := NewConfig(t.TempDir(), "")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return NewIdentitySynthesizer(cfg)
}

func TestSynthesizeGeoCanvasDeterminism(t *testing.T) {
	s := newTestSynthesizer(t)

	for _, name := range AnchorNames() {
		a := s.SynthesizeGeo(name)
		b := s.SynthesizeGeo(name)
		if a.CanvasHash != b.CanvasHash {
			t.Errorf("anchor %s: canvas hash not stable across syntheses", name)
		}
		if a.CanvasNoise != b.CanvasNoise {
			t.Errorf("anchor %s: canvas noise not stable across syntheses", name)
		}
		if a.Id == b.Id {
			t.Errorf("anchor %s: identity ids should be unique", name)
		}
	}

	ny := s.SynthesizeGeo("New-York-NY")
	bos := s.SynthesizeGeo("Boston-MA")
	if ny.CanvasHash == bos.CanvasHash {
		t.Error("different anchors should produce different canvas hashes")
	}
}

func TestSynthesizeGeoJitterBounds(t *testing.T) {
	s := newTestSynthesizer(t)
	anchor, _ := GetAnchor("Miami-FL")

	for i := 0; i < 50; i++ {
		ident := s.SynthesizeGeo("Miami-FL")
		if math.Abs(ident.Geolocation.Latitude-anchor.Latitude) > 0.03 {
			t.Fatalf("latitude %v outside jitter radius of %v", ident.Geolocation.Latitude, anchor.Latitude)
		}
		if math.Abs(ident.Geolocation.Longitude-anchor.Longitude) > 0.03 {
			t.Fatalf("longitude %v outside jitter radius of %v", ident.Geolocation.Longitude, anchor.Longitude)
		}
	}
}

func TestSynthesizeGeoCoherence(t *testing.T) {
	clearLocaleEnv(t)
	s := newTestSynthesizer(t)

	for _, name := range AnchorNames() {
		anchor, _ := GetAnchor(name)
		ident := s.SynthesizeGeo(name)

		if ident.Timezone != anchor.Timezone {
			t.Errorf("anchor %s: timezone = %s, want %s", name, ident.Timezone, anchor.Timezone)
		}
		if ident.OriginTag != name {
			t.Errorf("anchor %s: origin tag = %s", name, ident.OriginTag)
		}
		if ident.GenerationMode != GenerationModeGeo {
			t.Errorf("anchor %s: generation mode = %s", name, ident.GenerationMode)
		}

		profile, ok := GetOSProfile(ident.OSProfileID)
		if !ok {
			t.Fatalf("anchor %s: unknown os profile %s", name, ident.OSProfileID)
		}
		if ident.Platform != profile.Platform {
			t.Errorf("anchor %s: platform %s does not match profile %s", name, ident.Platform, profile.Id)
		}
		if ident.WebGLVendor != profile.WebGLVendor {
			t.Errorf("anchor %s: webgl vendor %s does not match profile %s", name, ident.WebGLVendor, profile.Id)
		}
		found := false
		for _, r := range profile.WebGLRenderers {
			if r == ident.WebGLRenderer {
				found = true
			}
		}
		if !found {
			t.Errorf("anchor %s: renderer %q not in profile %s", name, ident.WebGLRenderer, profile.Id)
		}

		if ident.NavigatorLanguage != ident.Locale.Locales[0] {
			t.Errorf("anchor %s: navigator language %s != primary locale %s", name, ident.NavigatorLanguage, ident.Locale.Locales[0])
		}
		if ident.ExtraHTTPHeaders["Accept-Language"] != ident.Locale.AcceptLanguage {
			t.Errorf("anchor %s: accept-language header mismatch", name)
		}
	}
}

func TestSynthesizeGeoViewportInsets(t *testing.T) {
	s := newTestSynthesizer(t)

	for i := 0; i < 50; i++ {
		ident := s.SynthesizeGeo("New-York-NY")
		wInset := ident.Resolution.Width - ident.Viewport.Width
		hInset := ident.Resolution.Height - ident.Viewport.Height
		if wInset < 15 || wInset > 25 {
			t.Fatalf("viewport width inset %d outside [15,25]", wInset)
		}
		if hInset < 90 || hInset > 120 {
			t.Fatalf("viewport height inset %d outside [90,120]", hInset)
		}
	}
}

func TestSynthesizeGeoUnknownAnchor(t *testing.T) {
	s := newTestSynthesizer(t)

	ident := s.SynthesizeGeo("Atlantis-XX")
	def := s.cfg.GetFingerprint().DefaultAnchor
	if ident.OriginTag != def {
		t.Errorf("unknown anchor should fall back to %s, got origin tag %s", def, ident.OriginTag)
	}
}

func TestSynthesizeLocal(t *testing.T) {
	clearLocaleEnv(t)
	s := newTestSynthesizer(t)
	s.tz = &stubDiscoverer{tz: "America/Bogota", source: TimezoneSourcePrimary}

	ident := s.SynthesizeLocal(context.Background())
	if ident.Timezone != "America/Bogota" {
		t.Errorf("timezone = %s", ident.Timezone)
	}
	if ident.GenerationMode != GenerationModeLocal {
		t.Errorf("generation mode = %s", ident.GenerationMode)
	}
	if ident.OriginTag != OriginTagLocal {
		t.Errorf("origin tag = %s", ident.OriginTag)
	}
	if ident.Locale.Locales[0] != "es-CO" {
		t.Errorf("locale = %s, want es-CO for America/Bogota", ident.Locale.Locales[0])
	}
	if math.Abs(ident.Geolocation.Latitude-localRefLatitude) > 0.05 {
		t.Errorf("local mode latitude %v strayed from the generic reference", ident.Geolocation.Latitude)
	}
}

func TestSynthesizeLocalCanvasVariesPerSession(t *testing.T) {
	s := newTestSynthesizer(t)
	s.tz = &stubDiscoverer{tz: "Europe/London", source: TimezoneSourceBackup}

	a := s.SynthesizeLocal(context.Background())
	b := s.SynthesizeLocal(context.Background())
	if a.CanvasHash == b.CanvasHash {
		t.Error("local identities should not share canvas hashes across sessions")
	}
}

func TestSynthesizeLocalFallback(t *testing.T) {
	clearLocaleEnv(t)
	s := newTestSynthesizer(t)
	s.tz = &stubDiscoverer{tz: "America/New_York", source: TimezoneSourceDefault}

	ident := s.SynthesizeLocal(context.Background())
	if ident.GenerationMode != GenerationModeLocalFallback {
		t.Errorf("generation mode = %s, want %s", ident.GenerationMode, GenerationModeLocalFallback)
	}
	if ident.OSProfileID != "windows" {
		t.Errorf("fallback os profile = %s, want windows", ident.OSProfileID)
	}
	if ident.Resolution.Width != 1920 || ident.Resolution.Height != 1080 {
		t.Errorf("fallback resolution = %dx%d", ident.Resolution.Width, ident.Resolution.Height)
	}
	if ident.Geolocation.Latitude != localRefLatitude || ident.Geolocation.Longitude != localRefLongitude {
		t.Error("fallback identity should carry the exact generic coordinates")
	}
}
