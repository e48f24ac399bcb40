package core

import (
	"fmt"
	"time"
)

type AbuseAlert struct {
	Alert         bool   `json:"alert"`
	Address       string `json:"address,omitempty"`
	PolicyCredits int    `json:"policy_credits,omitempty"`
	Message       string `json:"message,omitempty"`
}

// EvaluateAbuse applies the policy-credit velocity heuristic: a node alerts
// while it carries at least the threshold of cumulative credits and its
// most recent credit happened inside the rolling window. Older credits are
// not decayed individually; the check is a deliberately coarse point-in-time
// heuristic.
func (pm *ProxyManager) EvaluateAbuse(nodeId int) (*AbuseAlert, error) {
	node, err := pm.db.GetProxyById(nodeId)
	if err != nil {
		return nil, err
	}

	policy := pm.cfg.GetProxyPolicy()
	window := time.Duration(policy.AbuseWindowDays) * 24 * time.Hour

	if node.PolicyCredits >= policy.AbuseCreditThreshold && node.PolicyCreditedAt > 0 {
		lastCredit := time.Unix(node.PolicyCreditedAt, 0)
		if time.Since(lastCredit) < window {
			return &AbuseAlert{
				Alert:         true,
				Address:       node.Address,
				PolicyCredits: node.PolicyCredits,
				Message: fmt.Sprintf("%d policies issued through %s in under %d days; consider disabling this node",
					node.PolicyCredits, node.Address, policy.AbuseWindowDays),
			}, nil
		}
	}

	return &AbuseAlert{Alert: false}, nil
}
