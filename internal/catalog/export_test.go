package catalog

import "time"

// SetNow replaces the populator's clock.
func (p *Populator) SetNow(now func() time.Time) {
	p.now = now
}
