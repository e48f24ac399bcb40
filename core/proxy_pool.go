package core

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Cristobalca/shield-browser-app/database"
	"github.com/Cristobalca/shield-browser-app/log"
)

var (
	ErrInvalidRegion      = errors.New("region code must be two letters")
	ErrInvalidPolicyCount = errors.New("policy credit count must be positive")
)

type AllocationReason string

const (
	AllocOk              AllocationReason = "ok"
	AllocRegionUnknown   AllocationReason = "region_unknown"
	AllocRegionExhausted AllocationReason = "region_exhausted"
)

type AllocationResult struct {
	Node      *database.ProxyNode `json:"node,omitempty"`
	Reason    AllocationReason    `json:"reason"`
	Region    string              `json:"region,omitempty"`
	Total     int                 `json:"total"`
	Available int                 `json:"available"`
}

type RegionSummary struct {
	Region    string `json:"region"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
}

// BrowserProxy is the lightweight credential tuple handed to the browser
// layer for a single session.
type BrowserProxy struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// ProxyManager owns allocation and lifecycle policy over the node table.
// The mutex makes select-and-hand-out atomic: no two concurrent callers can
// walk away with the same node. Nodes stay leased until the caller credits
// the session or releases them explicitly.
type ProxyManager struct {
	db     *database.Database
	cfg    *Config
	leased map[int]bool
	mtx    sync.Mutex
}

var regionSuffixRe = regexp.MustCompile(`-(\w{2})$`)

func NewProxyManager(db *database.Database, cfg *Config) *ProxyManager {
	return &ProxyManager{
		db:     db,
		cfg:    cfg,
		leased: make(map[int]bool),
	}
}

// RegionFromLocationTag extracts the uppercased two-letter region from a
// location tag's trailing suffix ("Miami-FL" -> "FL"). Empty when absent.
func RegionFromLocationTag(locationTag string) string {
	m := regionSuffixRe.FindStringSubmatch(locationTag)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// NormalizeRegionCode validates and uppercases an explicit region code.
func NormalizeRegionCode(regionCode string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(regionCode))
	if len(trimmed) != 2 {
		return ""
	}
	return trimmed
}

// Allocate picks the eligible node with the largest id for the tag's
// region. Freshly imported nodes have the highest ids, so the pool is
// consumed newest-first.
func (pm *ProxyManager) Allocate(locationTag string) (*AllocationResult, error) {
	region := RegionFromLocationTag(locationTag)
	if region == "" {
		log.Warning("proxy-pool: cannot extract region from location tag: %s", locationTag)
		return &AllocationResult{Reason: AllocRegionUnknown}, nil
	}

	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	nodes, err := pm.db.ListProxiesByRegion(region)
	if err != nil {
		return nil, err
	}

	var pick *database.ProxyNode
	total, available := 0, 0
	for _, n := range nodes {
		total++
		if !n.Eligible() {
			continue
		}
		available++
		if pm.leased[n.Id] {
			continue
		}
		if pick == nil || n.Id > pick.Id {
			pick = n
		}
	}

	if pick == nil {
		log.Warning("proxy-pool: no nodes available for region %s (total: %d, available: %d)", region, total, available)
		return &AllocationResult{Reason: AllocRegionExhausted, Region: region, Total: total, Available: available}, nil
	}

	pm.leased[pick.Id] = true
	log.Info("proxy-pool: allocated node %d (%s:%d) for region %s", pick.Id, pick.Address, pick.Port, region)
	return &AllocationResult{Node: pick, Reason: AllocOk, Region: region, Total: total, Available: available}, nil
}

// Release returns a leased node to the pool without crediting a session,
// for sessions that never got off the ground.
func (pm *ProxyManager) Release(nodeId int) {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()
	delete(pm.leased, nodeId)
}

// CreditSession marks one completed session on the node and ends its lease.
// Reaching the burn threshold moves the node to the terminal burned state.
func (pm *ProxyManager) CreditSession(nodeId int) (*database.ProxyNode, error) {
	pm.mtx.Lock()
	delete(pm.leased, nodeId)
	pm.mtx.Unlock()

	node, err := pm.db.CreditProxySession(nodeId, pm.cfg.GetProxyPolicy().BurnThreshold)
	if err != nil {
		return nil, err
	}
	if node.State == database.ProxyStateBurned {
		log.Warning("proxy-pool: node BURNED: %s:%d (%d sessions)", node.Address, node.Port, node.SessionsCompleted)
	} else {
		log.Info("proxy-pool: session credited to node %d (%d/%d)", node.Id, node.SessionsCompleted, pm.cfg.GetProxyPolicy().BurnThreshold)
	}
	return node, nil
}

// CreditPolicies attributes count business outcomes to the node and stamps
// the credit time used by the abuse evaluator.
func (pm *ProxyManager) CreditPolicies(nodeId int, count int) (*database.ProxyNode, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPolicyCount, count)
	}
	node, err := pm.db.CreditProxyPolicies(nodeId, count, time.Now().UTC().Unix())
	if err != nil {
		return nil, err
	}
	log.Info("proxy-pool: %d policy credits added to node %d (total: %d)", count, node.Id, node.PolicyCredits)
	return node, nil
}

// ToggleDisabled flips the operator-controlled disabled flag. It is
// orthogonal to the lifecycle state: a burned node can be re-enabled
// without becoming allocatable.
func (pm *ProxyManager) ToggleDisabled(nodeId int) (*database.ProxyNode, error) {
	node, err := pm.db.ToggleProxyDisabled(nodeId)
	if err != nil {
		return nil, err
	}
	log.Info("proxy-pool: node %d disabled flag set to %v", node.Id, node.Disabled)
	return node, nil
}

func (pm *ProxyManager) GetNode(nodeId int) (*database.ProxyNode, error) {
	return pm.db.GetProxyById(nodeId)
}

// ListByRegion returns the nodes of one region, or all nodes when the
// region is empty. Enabled nodes sort first, then region, then id.
func (pm *ProxyManager) ListByRegion(regionCode string) ([]*database.ProxyNode, error) {
	var nodes []*database.ProxyNode
	var err error
	if regionCode == "" {
		nodes, err = pm.db.ListProxies()
	} else {
		region := NormalizeRegionCode(regionCode)
		if region == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRegion, regionCode)
		}
		nodes, err = pm.db.ListProxiesByRegion(region)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Disabled != nodes[j].Disabled {
			return !nodes[i].Disabled
		}
		if nodes[i].RegionCode != nodes[j].RegionCode {
			return nodes[i].RegionCode < nodes[j].RegionCode
		}
		return nodes[i].Id < nodes[j].Id
	})
	return nodes, nil
}

// SummaryByRegion reports total and available-and-enabled counts per
// region, sorted by region code.
func (pm *ProxyManager) SummaryByRegion() ([]*RegionSummary, error) {
	nodes, err := pm.db.ListProxies()
	if err != nil {
		return nil, err
	}

	byRegion := make(map[string]*RegionSummary)
	for _, n := range nodes {
		s, ok := byRegion[n.RegionCode]
		if !ok {
			s = &RegionSummary{Region: n.RegionCode}
			byRegion[n.RegionCode] = s
		}
		s.Total++
		if n.Eligible() {
			s.Available++
		}
	}

	summaries := []*RegionSummary{}
	for _, s := range byRegion {
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Region < summaries[j].Region })
	return summaries, nil
}

// CountByRegion mirrors SummaryByRegion for a single region.
func (pm *ProxyManager) CountByRegion(regionCode string) (*RegionSummary, error) {
	region := NormalizeRegionCode(regionCode)
	if region == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRegion, regionCode)
	}
	nodes, err := pm.db.ListProxiesByRegion(region)
	if err != nil {
		return nil, err
	}
	s := &RegionSummary{Region: region}
	for _, n := range nodes {
		s.Total++
		if n.Eligible() {
			s.Available++
		}
	}
	return s, nil
}

// GetBrowserProxy converts a node into the credential tuple the browser
// layer consumes.
func (pm *ProxyManager) GetBrowserProxy(node *database.ProxyNode) *BrowserProxy {
	if node == nil {
		return nil
	}
	return &BrowserProxy{
		Server:   fmt.Sprintf("http://%s:%d", node.Address, node.Port),
		Username: node.Username,
		Secret:   node.Secret,
	}
}
