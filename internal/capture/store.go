package capture

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

const (
	sessionTTL   = 24 * time.Hour
	thumbnailTTL = time.Hour
)

// SessionRecord is the registry view of a live session.
type SessionRecord struct {
	ID           string             `json:"id"`
	OwnerID      string             `json:"owner_id"`
	State        State              `json:"state"`
	Mode         shared.SessionMode `json:"mode"`
	DeviceID     string             `json:"device_id"`
	ItemCount    int                `json:"item_count"`
	GhostEnabled bool               `json:"ghost_enabled"`
	StartedAt    time.Time          `json:"started_at"`
	LastActiveAt time.Time          `json:"last_active_at"`
}

func (r *SessionRecord) RedisKey() string {
	return "capture:session:" + r.ID
}

func RecordFromSession(s *Session) *SessionRecord {
	return &SessionRecord{
		ID:           s.ID(),
		OwnerID:      s.OwnerID(),
		State:        s.State(),
		Mode:         s.Mode(),
		DeviceID:     s.DeviceID(),
		ItemCount:    s.ItemCount(),
		GhostEnabled: s.Ghost().Enabled(),
		StartedAt:    s.startedAt,
		LastActiveAt: time.Now(),
	}
}

// Store keeps session records and a short-lived thumbnail cache in redis so a
// reconnecting client can re-render its item tray without re-uploading.
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) SaveSession(ctx context.Context, rec *SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, rec.RedisKey(), data, sessionTTL).Err()
}

func (s *Store) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	data, err := s.redis.Get(ctx, "capture:session:"+id).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	pipe := s.redis.Pipeline()
	pipe.Del(ctx, "capture:session:"+id)
	pipe.Del(ctx, thumbKey(id))
	_, err := pipe.Exec(ctx)
	return err
}

func thumbKey(sessionID string) string {
	return "capture:session:" + sessionID + ":thumbs"
}

// CacheThumbnail stores an item thumbnail scored by capture time.
func (s *Store) CacheThumbnail(ctx context.Context, sessionID, itemID string, capturedAt int64, thumb []byte) error {
	payload, err := json.Marshal(map[string]any{"item_id": itemID, "data": thumb})
	if err != nil {
		return err
	}

	pipe := s.redis.Pipeline()
	pipe.ZAdd(ctx, thumbKey(sessionID), redis.Z{Score: float64(capturedAt), Member: payload})
	pipe.Expire(ctx, thumbKey(sessionID), thumbnailTTL)
	_, err = pipe.Exec(ctx)
	return err
}

type CachedThumbnail struct {
	ItemID string `json:"item_id"`
	Data   []byte `json:"data"`
}

// Thumbnails returns cached thumbnails in capture order.
func (s *Store) Thumbnails(ctx context.Context, sessionID string) ([]CachedThumbnail, error) {
	results, err := s.redis.ZRangeWithScores(ctx, thumbKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	thumbs := make([]CachedThumbnail, 0, len(results))
	for _, r := range results {
		raw, ok := r.Member.(string)
		if !ok {
			continue
		}
		var t CachedThumbnail
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		thumbs = append(thumbs, t)
	}
	return thumbs, nil
}
