package muxwire

import (
	"sync"
)

// GaugeSet keeps named gauges grouped by object (a connection name).
// Remove deletes a gauge entirely; a settled handshake must disappear from
// the snapshot, not read as zero.
type GaugeSet struct {
	mtx    sync.Mutex
	values map[string]map[string]float64
}

func NewGaugeSet() *GaugeSet {
	var c GaugeSet
	c.values = make(map[string]map[string]float64)
	return &c
}

func (c *GaugeSet) Set(object string, name string, value float64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	gauges, ok := c.values[object]
	if !ok {
		gauges = make(map[string]float64)
		c.values[object] = gauges
	}
	gauges[name] = value
}

func (c *GaugeSet) Remove(object string, name string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	gauges, ok := c.values[object]
	if !ok {
		return
	}
	delete(gauges, name)
	if len(gauges) == 0 {
		delete(c.values, object)
	}
}

func (c *GaugeSet) Get(object string, name string) (value float64, ok bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	gauges, found := c.values[object]
	if !found {
		return 0, false
	}
	value, ok = gauges[name]
	return
}

// State returns a snapshot for the status HTTP API.
func (c *GaugeSet) State() map[string]map[string]float64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	result := make(map[string]map[string]float64, len(c.values))
	for object, gauges := range c.values {
		copied := make(map[string]float64, len(gauges))
		for name, value := range gauges {
			copied[name] = value
		}
		result[object] = copied
	}
	return result
}

const GaugeNegotiating = "negotiating"

// Gauges is the process-wide registry. Per-connection registration and
// removal is the only cross-connection shared state in this package.
var Gauges = NewGaugeSet()
