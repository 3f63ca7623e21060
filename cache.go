package nearestvehicle

import (
	"sync"
	"sync/atomic"
)

// cacheFlushSize is the number of records a worker buffers before appending
// them to the cache.
const cacheFlushSize = 4096

// VehicleCache is the unordered in-memory store of decoded vehicles.
//
// It is writable by any number of workers while being populated and becomes
// read-only once sealed. Readers only see a sealed cache.
type VehicleCache struct {
	mu       sync.Mutex
	vehicles []Vehicle
	sealed   atomic.Bool
}

func newVehicleCache() *VehicleCache {
	return &VehicleCache{}
}

// add appends a batch of records. Safe for concurrent use before seal.
func (c *VehicleCache) add(batch []Vehicle) {
	c.mu.Lock()
	c.vehicles = append(c.vehicles, batch...)
	c.mu.Unlock()
}

// reset drops every record added so far.
func (c *VehicleCache) reset() {
	c.mu.Lock()
	c.vehicles = nil
	c.mu.Unlock()
}

// seal ends the population phase.
func (c *VehicleCache) seal() {
	c.mu.Lock()
	c.sealed.Store(true)
	c.mu.Unlock()
}

// Sealed reports whether population has finished.
func (c *VehicleCache) Sealed() bool {
	return c.sealed.Load()
}

// Len returns the number of cached vehicles, or 0 before the cache is sealed.
func (c *VehicleCache) Len() int {
	if !c.sealed.Load() {
		return 0
	}
	return len(c.vehicles)
}

// Range calls fn for each cached vehicle until fn returns false. The order
// is unspecified. Range does nothing before the cache is sealed.
func (c *VehicleCache) Range(fn func(Vehicle) bool) {
	c.scan(func(v *Vehicle) bool { return fn(*v) })
}

// scan is Range without copying. fn must not retain or modify v.
func (c *VehicleCache) scan(fn func(v *Vehicle) bool) {
	if !c.sealed.Load() {
		return
	}
	for i := range c.vehicles {
		if !fn(&c.vehicles[i]) {
			return
		}
	}
}
