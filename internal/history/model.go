package history

import (
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

// Record is one completed submission. The selection payloads themselves are
// never stored; only the durable URLs and the analysis outcome survive.
type Record struct {
	ID              string             `gorm:"primaryKey" json:"id"`
	OwnerID         string             `gorm:"not null;index" json:"owner_id"`
	Category        string             `gorm:"not null;index" json:"category"`
	Subcategory     string             `json:"subcategory,omitempty"`
	ItemCount       int                `json:"item_count"`
	OriginalBytes   int64              `json:"original_bytes"`
	CompressedBytes int64              `json:"compressed_bytes"`
	EstimatedValue  float64            `json:"estimated_value"`
	Confidence      float64            `json:"confidence"`
	Verdict         string             `json:"verdict"`
	Summary         string             `json:"summary,omitempty"`
	DurableURLs     shared.StringSlice `gorm:"type:text" json:"durable_urls"`

	GhostStoreType     string   `json:"ghost_store_type,omitempty"`
	GhostStoreName     string   `json:"ghost_store_name,omitempty"`
	GhostShelfPrice    *float64 `json:"ghost_shelf_price,omitempty"`
	GhostMargin        *float64 `json:"ghost_margin,omitempty"`
	GhostMarginPercent *float64 `json:"ghost_margin_percent,omitempty"`
	GhostVelocity      string   `json:"ghost_velocity,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
