package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"
)

const ProxyTable = "proxies"

// Lifecycle states of a proxy node. The transition is one-way: a node that
// reaches the session limit becomes burned and never returns to available.
const (
	ProxyStateAvailable = "available"
	ProxyStateBurned    = "burned"
)

var ErrProxyNotFound = errors.New("proxy node not found")

type ProxyNode struct {
	Id                int    `json:"id"`
	Address           string `json:"address"`
	Port              int    `json:"port"`
	Username          string `json:"username"`
	Secret            string `json:"secret"`
	RegionCode        string `json:"region_code"`
	State             string `json:"state"`
	Disabled          bool   `json:"disabled"`
	SessionsCompleted int    `json:"sessions_completed"`
	PolicyCredits     int    `json:"policy_credits"`
	PolicyCreditedAt  int64  `json:"policy_credited_at"`
	CreateTime        int64  `json:"create_time"`
}

// Eligible reports whether the node can be handed out to a new session.
// Disabled is an operator flag orthogonal to the lifecycle state.
func (p *ProxyNode) Eligible() bool {
	return p.State == ProxyStateAvailable && !p.Disabled
}

func (d *Database) proxiesInit() {
	d.db.CreateIndex("proxies_id", ProxyTable+":*", buntdb.IndexJSON("id"))
	d.db.CreateIndex("proxies_region", ProxyTable+":*", buntdb.IndexJSON("region_code"))
}

// proxiesUpsert inserts a node record or replaces an existing one with the
// same (address, port, username, secret) tuple. Replacement assigns a fresh
// id and resets lifecycle fields, mirroring sqlite's INSERT OR REPLACE on an
// autoincrement table.
func (d *Database) proxiesUpsert(address string, port int, username string, secret string, regionCode string) (*ProxyNode, error) {
	var p *ProxyNode
	err := d.db.Update(func(tx *buntdb.Tx) error {
		var stale_key string
		tx.Ascend("proxies_id", func(key, val string) bool {
			old := &ProxyNode{}
			if err := json.Unmarshal([]byte(val), old); err != nil {
				return true
			}
			if old.Address == address && old.Port == port && old.Username == username && old.Secret == secret {
				stale_key = key
				return false
			}
			return true
		})
		if stale_key != "" {
			if _, err := tx.Delete(stale_key); err != nil {
				return err
			}
		}

		id, err := d.getNextIdTx(tx, ProxyTable)
		if err != nil {
			return err
		}

		p = &ProxyNode{
			Id:                id,
			Address:           address,
			Port:              port,
			Username:          username,
			Secret:            secret,
			RegionCode:        regionCode,
			State:             ProxyStateAvailable,
			Disabled:          false,
			SessionsCompleted: 0,
			PolicyCredits:     0,
			PolicyCreditedAt:  0,
			CreateTime:        time.Now().UTC().Unix(),
		}

		jf, _ := json.Marshal(p)
		_, _, err = tx.Set(d.genIndex(ProxyTable, id), string(jf), nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Database) proxiesList() ([]*ProxyNode, error) {
	proxies := []*ProxyNode{}
	err := d.db.View(func(tx *buntdb.Tx) error {
		tx.Ascend("proxies_id", func(key, val string) bool {
			p := &ProxyNode{}
			if err := json.Unmarshal([]byte(val), p); err == nil {
				proxies = append(proxies, p)
			}
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proxies, nil
}

func (d *Database) proxiesListByRegion(regionCode string) ([]*ProxyNode, error) {
	proxies := []*ProxyNode{}
	err := d.db.View(func(tx *buntdb.Tx) error {
		tx.AscendEqual("proxies_region", d.getPivot(map[string]string{"region_code": regionCode}), func(key, val string) bool {
			p := &ProxyNode{}
			if err := json.Unmarshal([]byte(val), p); err == nil {
				proxies = append(proxies, p)
			}
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proxies, nil
}

func (d *Database) proxiesGetById(id int) (*ProxyNode, error) {
	p := &ProxyNode{}
	err := d.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(d.genIndex(ProxyTable, id))
		if err != nil {
			return fmt.Errorf("%w: %d", ErrProxyNotFound, id)
		}
		return json.Unmarshal([]byte(val), p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// proxiesModify runs a full read-modify-write cycle against a single node
// inside one transaction, so concurrent writers never lose updates.
func (d *Database) proxiesModify(id int, fn func(*ProxyNode)) (*ProxyNode, error) {
	p := &ProxyNode{}
	err := d.db.Update(func(tx *buntdb.Tx) error {
		key := d.genIndex(ProxyTable, id)
		val, err := tx.Get(key)
		if err != nil {
			return fmt.Errorf("%w: %d", ErrProxyNotFound, id)
		}
		if err := json.Unmarshal([]byte(val), p); err != nil {
			return err
		}

		fn(p)

		jf, _ := json.Marshal(p)
		_, _, err = tx.Set(key, string(jf), nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
