package core

import "sort"

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GeoAnchor is a named geographic reference point with the timezone,
// coordinates and screen resolutions plausible for devices in that city.
type GeoAnchor struct {
	Name        string
	Timezone    string
	Latitude    float64
	Longitude   float64
	Resolutions []Resolution
}

// OSProfile groups the user agents, GPU strings and hardware capabilities
// that may appear together on one operating system. Picking every value
// from a single profile keeps the synthesized identity self-consistent.
type OSProfile struct {
	Id                  string
	Label               string
	Platform            string
	Vendor              string
	OSVersion           string
	DeviceScaleFactor   float64
	MaxTouchPoints      int
	HardwareConcurrency []int
	DeviceMemory        []int
	UserAgents          []string
	WebGLVendor         string
	WebGLRenderers      []string
	AudioMode           string
	FontsMode           string
}

const DefaultAnchorName = "New-York-NY"

var res1080 = Resolution{1920, 1080}
var res1440 = Resolution{2560, 1440}
var res768 = Resolution{1366, 768}
var res1050 = Resolution{1680, 1050}
var res900 = Resolution{1440, 900}
var res4k = Resolution{3840, 2160}

var geoAnchors = map[string]*GeoAnchor{
	"New-York-NY": {
		Name: "New-York-NY", Timezone: "America/New_York", Latitude: 40.7128, Longitude: -74.0060,
		Resolutions: []Resolution{res1080, res1440, res768, res1050, res900},
	},
	"Boston-MA": {
		Name: "Boston-MA", Timezone: "America/New_York", Latitude: 42.3601, Longitude: -71.0589,
		Resolutions: []Resolution{res1080, res1440, res1050, res900, res768},
	},
	"Philadelphia-PA": {
		Name: "Philadelphia-PA", Timezone: "America/New_York", Latitude: 39.9526, Longitude: -75.1652,
		Resolutions: []Resolution{res1080, res768, res1050, res1440, res900},
	},
	"Baltimore-MD": {
		Name: "Baltimore-MD", Timezone: "America/New_York", Latitude: 39.2904, Longitude: -76.6122,
		Resolutions: []Resolution{res1080, res768, res900, res1050, res1440},
	},
	"Washington-DC": {
		Name: "Washington-DC", Timezone: "America/New_York", Latitude: 38.9072, Longitude: -77.0369,
		Resolutions: []Resolution{res1080, res1440, res1050, res768, res4k},
	},
	"Newark-NJ": {
		Name: "Newark-NJ", Timezone: "America/New_York", Latitude: 40.7357, Longitude: -74.1724,
		Resolutions: []Resolution{res1080, res768, res1050, res900, res1440},
	},
	"Hartford-CT": {
		Name: "Hartford-CT", Timezone: "America/New_York", Latitude: 41.7658, Longitude: -72.6734,
		Resolutions: []Resolution{res1080, res768, res900, res1050, res1440},
	},
	"Providence-RI": {
		Name: "Providence-RI", Timezone: "America/New_York", Latitude: 41.8240, Longitude: -71.4128,
		Resolutions: []Resolution{res1080, res1050, res768, res900, res1440},
	},
	"Albany-NY": {
		Name: "Albany-NY", Timezone: "America/New_York", Latitude: 42.6526, Longitude: -73.7562,
		Resolutions: []Resolution{res1080, res768, res1050, res900, res1440},
	},
	"Pittsburgh-PA": {
		Name: "Pittsburgh-PA", Timezone: "America/New_York", Latitude: 40.4406, Longitude: -79.9959,
		Resolutions: []Resolution{res1080, res768, res900, res1050, res1440},
	},
	"Buffalo-NY": {
		Name: "Buffalo-NY", Timezone: "America/New_York", Latitude: 42.8864, Longitude: -78.8784,
		Resolutions: []Resolution{res1080, res768, res1050, res900, res1440},
	},
	"Miami-FL": {
		Name: "Miami-FL", Timezone: "America/New_York", Latitude: 25.7617, Longitude: -80.1918,
		Resolutions: []Resolution{res1080, res1440, res768, res1050, res4k},
	},
}

var osProfiles = map[string]*OSProfile{
	"mac": {
		Id:                  "mac",
		Label:               "macOS Sonoma",
		Platform:            "MacIntel",
		Vendor:              "Google Inc.",
		OSVersion:           "Mac OS X 14.5",
		DeviceScaleFactor:   2,
		MaxTouchPoints:      0,
		HardwareConcurrency: []int{8, 10, 12, 24},
		DeviceMemory:        []int{8, 16},
		UserAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36",
		},
		WebGLVendor: "Apple Inc.",
		WebGLRenderers: []string{
			"ANGLE (Apple, ANGLE Metal Renderer: Apple M1, OpenGL ES 3.0)",
			"ANGLE (Apple, ANGLE Metal Renderer: Apple M2, OpenGL ES 3.0)",
			"ANGLE (Apple, ANGLE Metal Renderer: Apple M3, OpenGL ES 3.0)",
			"Apple M2 Ultra",
		},
		AudioMode: "noise",
		FontsMode: "emulate",
	},
	"windows": {
		Id:                  "windows",
		Label:               "Windows 11",
		Platform:            "Win32",
		Vendor:              "Google Inc.",
		OSVersion:           "Windows NT 10.0; Win64; x64",
		DeviceScaleFactor:   1.25,
		MaxTouchPoints:      0,
		HardwareConcurrency: []int{8, 12, 16},
		DeviceMemory:        []int{8, 16},
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36",
		},
		WebGLVendor: "Google Inc. (Intel)",
		WebGLRenderers: []string{
			"ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)",
			"ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)",
			"ANGLE (AMD, AMD Radeon RX 6600 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		},
		AudioMode: "noise",
		FontsMode: "emulate",
	},
}

// Common desktop resolutions used when no anchor constrains the pick.
var genericResolutions = []Resolution{res1080, res1440, res768, res1050, res900}

func GetAnchor(name string) (*GeoAnchor, bool) {
	a, ok := geoAnchors[name]
	return a, ok
}

func AnchorNames() []string {
	names := []string{}
	for name := range geoAnchors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func GetOSProfile(id string) (*OSProfile, bool) {
	p, ok := osProfiles[id]
	return p, ok
}

func OSProfileIds() []string {
	ids := []string{}
	for id := range osProfiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
