// Package repository provides the persistence gateways for pet state.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"turtle-bot/internal/config"
	"turtle-bot/internal/model"
)

// ErrCorruptState is returned when a persisted document cannot be decoded.
var ErrCorruptState = errors.New("corrupt state")

// Codec encodes the persisted documents.
type Codec interface {
	Ext() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Ext() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// tomlCodec writes pets through tomlPetsDocument: go-toml cannot decode a
// *time.Time field, so timestamps are stored as plain datetimes.
type tomlCodec struct{}

func (tomlCodec) Ext() string { return "toml" }

func (tomlCodec) Marshal(v any) ([]byte, error) {
	if doc, ok := v.(petsDocument); ok {
		v = newTOMLPetsDocument(doc)
	}
	return toml.Marshal(v)
}

func (tomlCodec) Unmarshal(data []byte, v any) error {
	doc, ok := v.(*petsDocument)
	if !ok {
		return toml.Unmarshal(data, v)
	}
	var stored tomlPetsDocument
	if err := toml.Unmarshal(data, &stored); err != nil {
		return err
	}
	*doc = stored.petsDocument()
	return nil
}

// CodecFor returns the codec for a storage format.
func CodecFor(format string) (Codec, error) {
	switch format {
	case config.FormatJSON:
		return jsonCodec{}, nil
	case config.FormatTOML:
		return tomlCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported storage format %q", format)
	}
}

// petsDocument is the on-disk form of the pet store, keyed by decimal user ID.
type petsDocument struct {
	Pets map[string]*model.Pet `json:"pets" toml:"pets"`
}

// tomlPet is the TOML form of a pet. A zero timestamp means never.
type tomlPet struct {
	UserID             int64          `toml:"user_id"`
	Username           string         `toml:"username"`
	Name               string         `toml:"name"`
	Level              int            `toml:"level"`
	Experience         int            `toml:"experience"`
	Hunger             int            `toml:"hunger"`
	Happiness          int            `toml:"happiness"`
	Health             int            `toml:"health"`
	Coins              int64          `toml:"coins"`
	Inventory          map[string]int `toml:"inventory"`
	LastPlayedAt       time.Time      `toml:"last_played_at"`
	LastDailyClaimedAt time.Time      `toml:"last_daily_claimed_at"`
	CreatedAt          time.Time      `toml:"created_at"`
}

type tomlPetsDocument struct {
	Pets map[string]tomlPet `toml:"pets"`
}

func newTOMLPetsDocument(doc petsDocument) tomlPetsDocument {
	out := tomlPetsDocument{Pets: make(map[string]tomlPet, len(doc.Pets))}
	for key, p := range doc.Pets {
		if p == nil {
			continue
		}
		out.Pets[key] = tomlPet{
			UserID:             p.UserID,
			Username:           p.Username,
			Name:               p.Name,
			Level:              p.Level,
			Experience:         p.Experience,
			Hunger:             p.Hunger,
			Happiness:          p.Happiness,
			Health:             p.Health,
			Coins:              p.Coins,
			Inventory:          p.Inventory,
			LastPlayedAt:       derefTime(p.LastPlayedAt),
			LastDailyClaimedAt: derefTime(p.LastDailyClaimedAt),
			CreatedAt:          p.CreatedAt.UTC(),
		}
	}
	return out
}

func (d tomlPetsDocument) petsDocument() petsDocument {
	out := petsDocument{Pets: make(map[string]*model.Pet, len(d.Pets))}
	for key, p := range d.Pets {
		out.Pets[key] = &model.Pet{
			UserID:             p.UserID,
			Username:           p.Username,
			Name:               p.Name,
			Level:              p.Level,
			Experience:         p.Experience,
			Hunger:             p.Hunger,
			Happiness:          p.Happiness,
			Health:             p.Health,
			Coins:              p.Coins,
			Inventory:          p.Inventory,
			LastPlayedAt:       timeOrNil(p.LastPlayedAt),
			LastDailyClaimedAt: timeOrNil(p.LastDailyClaimedAt),
			CreatedAt:          p.CreatedAt.UTC(),
		}
	}
	return out
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

// leaderboardDocument is the on-disk form of the leaderboard, best first.
type leaderboardDocument struct {
	Entries []model.LeaderboardEntry `json:"entries" toml:"entries"`
}

// FileRepository stores snapshots as two documents in a directory.
type FileRepository struct {
	dir   string
	codec Codec
}

// NewFileRepository creates a file gateway rooted at dir.
func NewFileRepository(dir, format string) (*FileRepository, error) {
	codec, err := CodecFor(format)
	if err != nil {
		return nil, err
	}
	return &FileRepository{dir: dir, codec: codec}, nil
}

// PetsPath returns the location of the pets document.
func (r *FileRepository) PetsPath() string {
	return filepath.Join(r.dir, "pets."+r.codec.Ext())
}

// LeaderboardPath returns the location of the leaderboard document.
func (r *FileRepository) LeaderboardPath() string {
	return filepath.Join(r.dir, "leaderboard."+r.codec.Ext())
}

// Load reads both documents. A missing document is empty state.
func (r *FileRepository) Load(ctx context.Context) (*model.Snapshot, error) {
	snap := model.NewSnapshot()

	var pets petsDocument
	found, err := r.read(r.PetsPath(), &pets)
	if err != nil {
		return nil, err
	}
	if found {
		for key, p := range pets.Pets {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: bad user id %q", ErrCorruptState, r.PetsPath(), key)
			}
			if p != nil && p.Inventory == nil {
				p.Inventory = make(map[string]int)
			}
			snap.Pets[id] = p
		}
	}

	var board leaderboardDocument
	if _, err := r.read(r.LeaderboardPath(), &board); err != nil {
		return nil, err
	}
	snap.Leaderboard = board.Entries
	if snap.Leaderboard == nil {
		snap.Leaderboard = []model.LeaderboardEntry{}
	}

	log.Debug().
		Str("dir", r.dir).
		Int("pets", len(snap.Pets)).
		Int("leaderboard", len(snap.Leaderboard)).
		Msg("Loaded state files")
	return snap, nil
}

func (r *FileRepository) read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := r.codec.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptState, path, err)
	}
	return true, nil
}

// Save replaces both documents with the snapshot.
func (r *FileRepository) Save(ctx context.Context, snap *model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pets := petsDocument{Pets: make(map[string]*model.Pet, len(snap.Pets))}
	for id, p := range snap.Pets {
		pets.Pets[strconv.FormatInt(id, 10)] = p
	}
	if err := r.write(r.PetsPath(), pets); err != nil {
		return err
	}

	board := leaderboardDocument{Entries: snap.Leaderboard}
	if board.Entries == nil {
		board.Entries = []model.LeaderboardEntry{}
	}
	return r.write(r.LeaderboardPath(), board)
}

// write encodes v and swaps it into path, so readers see the old or the new
// document but never a partial one.
func (r *FileRepository) write(path string, v any) (err error) {
	data, err := r.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
