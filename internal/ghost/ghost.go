// Package ghost carries the arbitrage overlay of a capture session: where an
// item was found, what it costs on the shelf, and the margin once a valuation
// comes back.
package ghost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

const (
	// LocateTimeout bounds the single-shot geolocation request.
	LocateTimeout = 10 * time.Second

	// MaxFixAge is how long a cached fix stays usable. A fix older than this
	// triggers a fresh request on the next enable.
	MaxFixAge = 60 * time.Second
)

// HandlingWindows are the selectable handling commitments, in hours.
var HandlingWindows = []int{12, 24, 48, 72}

func ValidHandlingWindow(hours int) bool {
	for _, w := range HandlingWindows {
		if hours == w {
			return true
		}
	}
	return false
}

// Listing is an immutable snapshot of the draft, taken at submission time.
type Listing struct {
	Location      *Location        `json:"location,omitempty"`
	StoreType     shared.StoreType `json:"store_type"`
	StoreName     string           `json:"store_name"`
	StoreAisle    string           `json:"store_aisle,omitempty"`
	ShelfPrice    float64          `json:"shelf_price"`
	HandlingHours int              `json:"handling_hours"`
}

// Ready reports whether the listing can be attached to a submission:
// a location fix, a store name, and a positive shelf price.
func (l *Listing) Ready() bool {
	return l.Location != nil && l.StoreName != "" && l.ShelfPrice > 0
}

type Velocity string

const (
	VelocityHigh   Velocity = "high"
	VelocityMedium Velocity = "medium"
	VelocityLow    Velocity = "low"
)

type Outcome struct {
	EstimatedMargin float64  `json:"estimated_margin"`
	MarginPercent   float64  `json:"margin_percent"`
	Velocity        Velocity `json:"velocity"`
}

// ComputeOutcome derives the arbitrage economics once the valuation is known.
// Returns nil if the listing is not ready.
func (l *Listing) ComputeOutcome(estimatedValue float64) *Outcome {
	if !l.Ready() {
		return nil
	}

	margin := estimatedValue - l.ShelfPrice
	percent := 0.0
	if l.ShelfPrice > 0 {
		percent = margin / l.ShelfPrice * 100
	}

	velocity := VelocityLow
	switch {
	case percent > 100:
		velocity = VelocityHigh
	case percent > 50:
		velocity = VelocityMedium
	}

	return &Outcome{
		EstimatedMargin: margin,
		MarginPercent:   percent,
		Velocity:        velocity,
	}
}

// Draft is the mutable ghost-mode state of one capture session. It lives from
// the first enable until the session closes. The cached location fix survives
// an off/on toggle within the session as long as it is younger than MaxFixAge;
// store details and any location error are discarded on disable.
type Draft struct {
	locator Locator
	logger  *slog.Logger
	now     func() time.Time

	mu            sync.Mutex
	enabled       bool
	location      *Location
	fixTakenAt    time.Time
	locErr        error
	storeType     shared.StoreType
	storeName     string
	storeAisle    string
	shelfPrice    float64
	handlingHours int
}

func NewDraft(locator Locator, logger *slog.Logger) *Draft {
	if logger == nil {
		logger = slog.Default()
	}
	return &Draft{
		locator: locator,
		logger:  logger.With("component", "ghost-draft"),
		now:     time.Now,
	}
}

// Toggle enables or disables ghost mode. Enabling requests a location fix if
// none is cached or the cached one has expired; a failed fix leaves the draft
// enabled but not ready, and the error is returned so the caller can prompt
// the user to retry or disable.
func (d *Draft) Toggle(ctx context.Context, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !enabled {
		d.enabled = false
		d.storeType = ""
		d.storeName = ""
		d.storeAisle = ""
		d.shelfPrice = 0
		d.handlingHours = 0
		d.locErr = nil
		return nil
	}

	d.enabled = true
	if d.location != nil && d.now().Sub(d.fixTakenAt) <= MaxFixAge {
		return nil
	}

	d.location = nil
	locCtx, cancel := context.WithTimeout(ctx, LocateTimeout)
	defer cancel()

	fix, err := d.locator.Locate(locCtx)
	if err != nil {
		d.locErr = err
		d.logger.Warn("geolocation request failed", "error", err)
		return fmt.Errorf("%w: %v", shared.ErrGeolocation, err)
	}

	d.location = fix
	d.fixTakenAt = d.now()
	d.locErr = nil
	return nil
}

// Update sets the user-entered store details.
func (d *Draft) Update(storeType shared.StoreType, name, aisle string, shelfPrice float64, handlingHours int) error {
	if storeType != "" && !storeType.Valid() {
		return fmt.Errorf("%w: unknown store type %q", shared.ErrValidation, storeType)
	}
	if shelfPrice < 0 {
		return fmt.Errorf("%w: shelf price must be non-negative", shared.ErrValidation)
	}
	if handlingHours != 0 && !ValidHandlingWindow(handlingHours) {
		return fmt.Errorf("%w: handling window must be one of %v hours", shared.ErrValidation, HandlingWindows)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.storeType = storeType
	d.storeName = name
	d.storeAisle = aisle
	d.shelfPrice = shelfPrice
	d.handlingHours = handlingHours
	return nil
}

func (d *Draft) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *Draft) IsReady() bool {
	return d.Snapshot().Ready()
}

// Snapshot copies the draft into an immutable listing.
func (d *Draft) Snapshot() *Listing {
	d.mu.Lock()
	defer d.mu.Unlock()

	var loc *Location
	if d.location != nil {
		c := *d.location
		loc = &c
	}

	return &Listing{
		Location:      loc,
		StoreType:     d.storeType,
		StoreName:     d.storeName,
		StoreAisle:    d.storeAisle,
		ShelfPrice:    d.shelfPrice,
		HandlingHours: d.handlingHours,
	}
}

// LocationError returns the error from the last failed fix, if any.
func (d *Draft) LocationError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locErr
}
