package database

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/buntdb"
)

type Database struct {
	path string
	db   *buntdb.DB
}

func NewDatabase(path string) (*Database, error) {
	var err error
	d := &Database{
		path: path,
	}

	d.db, err = buntdb.Open(path)
	if err != nil {
		return nil, err
	}

	d.proxiesInit()

	d.db.Shrink()
	return d, nil
}

func (d *Database) UpsertProxy(address string, port int, username string, secret string, regionCode string) (*ProxyNode, error) {
	return d.proxiesUpsert(address, port, username, secret, regionCode)
}

func (d *Database) ListProxies() ([]*ProxyNode, error) {
	return d.proxiesList()
}

func (d *Database) ListProxiesByRegion(regionCode string) ([]*ProxyNode, error) {
	return d.proxiesListByRegion(regionCode)
}

func (d *Database) GetProxyById(id int) (*ProxyNode, error) {
	return d.proxiesGetById(id)
}

func (d *Database) CreditProxySession(id int, burnThreshold int) (*ProxyNode, error) {
	return d.proxiesModify(id, func(p *ProxyNode) {
		p.SessionsCompleted++
		if p.SessionsCompleted >= burnThreshold {
			p.State = ProxyStateBurned
		}
	})
}

func (d *Database) CreditProxyPolicies(id int, count int, at int64) (*ProxyNode, error) {
	return d.proxiesModify(id, func(p *ProxyNode) {
		p.PolicyCredits += count
		p.PolicyCreditedAt = at
	})
}

func (d *Database) ToggleProxyDisabled(id int) (*ProxyNode, error) {
	return d.proxiesModify(id, func(p *ProxyNode) {
		p.Disabled = !p.Disabled
	})
}

func (d *Database) Flush() {
	d.db.Shrink()
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) genIndex(table_name string, id int) string {
	return table_name + ":" + strconv.Itoa(id)
}

func (d *Database) getNextIdTx(tx *buntdb.Tx, table_name string) (int, error) {
	var id int = 1
	var err error
	var s_id string
	if s_id, err = tx.Get(table_name + ":0:id"); err == nil {
		if id, err = strconv.Atoi(s_id); err != nil {
			return 0, err
		}
	}
	if _, _, err = tx.Set(table_name+":0:id", strconv.Itoa(id+1), nil); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *Database) getPivot(t interface{}) string {
	pivot, _ := json.Marshal(t)
	return string(pivot)
}
